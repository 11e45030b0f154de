package catalog

import (
	"github.com/vidana-academy/learning-hub/backend/models"
)

type seedTopic struct {
	Topic   models.Topic
	Tag     string
	Modules []models.Module
}

func day(slug string, n int, title, description, estimate string, outcomes, concepts []string, homework string) models.Module {
	return models.Module{
		TopicSlug:           slug,
		DayNumber:           n,
		Title:               title,
		Description:         description,
		TimeEstimate:        estimate,
		Outcomes:            outcomes,
		KeyConcepts:         concepts,
		HomeworkDescription: homework,
	}
}

// builtin is the catalog shipped with the service. It seeds empty databases and
// backs topic pages whose modules have not been authored yet.
var builtin = []seedTopic{
	{
		Topic: models.Topic{Slug: "n8n", Title: "n8n Automation", Description: "Master workflow automation.", Icon: "Workflow", TotalModules: 9},
		Tag:   "n8n",
		Modules: []models.Module{
			day("n8n", 1, "The Mental Model", "Understanding the 3-box diagram and core philosophy of automation.", "2 Hours",
				[]string{"Understand Trigger vs Action", "Navigate the Canvas", "Execute first workflow"},
				[]string{"Nodes", "Connections", "JSON Data Structure"},
				"Create a simple Hello World workflow that triggers manually and logs a message."),
			day("n8n", 2, "Data Flow Visualization", "How data moves between nodes and how to transform it.", "2.5 Hours",
				[]string{"Map data between nodes", "Understand Items lists", "Use the Set node"},
				[]string{"Input/Output", "Expressions", "Data Pinning"},
				"Build a workflow that takes hardcoded JSON data and transforms it."),
			day("n8n", 3, "Triggers & Logic", "Deep dive into schedules, webhooks, and decision trees.", "3 Hours",
				[]string{"Build a Schedule trigger", "Create an IF node logic", "Handle multiple branches"},
				[]string{"Cron Expressions", "Boolean Logic", "Switch Node"},
				"Create a workflow that runs every hour with conditional logic."),
			day("n8n", 4, "Email & Conditional Routing", "Personalizing communication based on data conditions.", "3 Hours",
				[]string{"Connect Gmail/Outlook", "Dynamic email bodies", "Routing based on sender"},
				[]string{"SMTP/IMAP", "HTML in Emails", "Merge Tags"},
				"Simulate an email trigger that routes based on subject line."),
			day("n8n", 5, "APIs & OAuth", "Connecting to external services like Google Sheets safely.", "4 Hours",
				[]string{"Authenticate with Google Sheets", "Read/Write rows", "Understand HTTP Request Node"},
				[]string{"OAuth2", "Credentials", "API Methods"},
				"Connect to a public API and append data to a Google Sheet."),
			day("n8n", 6, "Project Architecture I", "Planning a complex workflow before building.", "3 Hours",
				[]string{"Diagramming workflows", "Separating concerns", "Modular design"},
				[]string{"Sub-workflows", "Execute Workflow Node", "State Management"},
				"Draw a diagram for your final Capstone project."),
			day("n8n", 7, "Project Architecture II", "Building the core logic of the capstone project.", "4 Hours",
				[]string{"Implementing core business logic", "Testing edge cases", "Data validation"},
				[]string{"Filter Node", "Code Node (JS)", "Data Transformation"},
				"Implement the main data processing engine of your capstone."),
			day("n8n", 8, "Project Architecture III", "Finalizing the project and user interfaces.", "4 Hours",
				[]string{"Connecting front-end forms", "Final outputs", "Dashboard reporting"},
				[]string{"n8n Form Trigger", "Wait Node", "Approvals"},
				"Connect the n8n Form Trigger to your logic from Day 7."),
			day("n8n", 9, "Error Handling & Production", "Making your workflows bulletproof.", "3 Hours",
				[]string{"Create an Error Workflow", "Try/Catch pattern", "Logging errors to Slack"},
				[]string{"Error Trigger", "Execution Data", "Retry Policies"},
				"Add an Error Trigger workflow that sends emails on failure."),
		},
	},
	{
		Topic: models.Topic{Slug: "vibe-coding", Title: "Vibe Coding", Description: "AI-assisted coding.", Icon: "Code", TotalModules: 5},
		Tag:   "Vibe Coding",
		Modules: []models.Module{
			day("vibe-coding", 1, "Introductions", "Setting up Cursor, Copilot, and understanding the Tab flow.", "2 Hours",
				[]string{"Install Cursor/VS Code", "Configure Copilot", "Understand context"},
				[]string{"Context Awareness", "Autocomplete", "Chat Interface"},
				"Set up your environment and generate a landing page."),
			day("vibe-coding", 2, "Prompt-Driven Development", "Writing specs for AI to generate high-quality code blocks.", "2.5 Hours",
				[]string{"Write effective code prompts", "Iterative refinement", "Managing hallucinations"},
				[]string{"Specificity", "Role Prompting", "Step-by-step"},
				"Write a prompt to generate a React To-Do list component."),
			day("vibe-coding", 3, "Debugging with AI", "Using AI to explain errors and suggest fixes.", "2 Hours",
				[]string{"Paste stack traces efficiently", "Rubber duck debugging", "Security checks"},
				[]string{"Error Analysis", "Log Injection", "Vulnerability Scanning"},
				"Take a broken code snippet and fix it using AI."),
			day("vibe-coding", 4, "Refactoring & Optimization", "Improving code quality and readability with AI assistance.", "2.5 Hours",
				[]string{"Modernize legacy code", "Add comments/docs", "Optimize complexity"},
				[]string{"Clean Code", "Big O Notation", "Documentation"},
				"Refactor a nested loop function into a cleaner approach."),
			day("vibe-coding", 5, "Micro-App Capstone", "Building a small utility app entirely with Vibe Coding.", "4 Hours",
				[]string{"End-to-end creation", "Deployment", "Final Polish"},
				[]string{"MVP Scope", "Deployment", "Vercel/Netlify"},
				"Build and deploy a simple utility app using only AI-generated code."),
		},
	},
	{
		Topic: models.Topic{Slug: "prompt-engineering", Title: "Prompt Engineering", Description: "LLM prompting mastery.", Icon: "MessageSquare", TotalModules: 4},
		Tag:   "Prompt Eng",
		Modules: []models.Module{
			day("prompt-engineering", 1, "Core Mechanics", "The anatomy of a perfect prompt.", "2 Hours",
				[]string{"Identify prompt components", "Reduce ambiguity", "Standardize formats"},
				[]string{"Context", "Instruction", "Few-shot"},
				"Rewrite 3 vague email requests into structured prompts."),
			day("prompt-engineering", 2, "Reasoning Strategies", "Chain of Thought and guiding the model.", "2.5 Hours",
				[]string{"Implement Chain of Thought", "Use Delimiters", "Ask for reasoning"},
				[]string{"CoT", "Zero-shot CoT", "Self-Consistency"},
				"Create a prompt that solves a logic puzzle by showing work."),
			day("prompt-engineering", 3, "System Prompts & Personas", "Configuring the Soul of the AI agent.", "2 Hours",
				[]string{"Define persona constraints", "Tone setting", "Output formatting"},
				[]string{"System Message", "Role-playing", "Guardrails"},
				"Design a System Prompt for a Socratic Tutor."),
			day("prompt-engineering", 4, "Advanced Prompting", "Prompt hacking, defense, and recursive prompting.", "3 Hours",
				[]string{"Understand Injection attacks", "Recursive refinement", "Meta-prompting"},
				[]string{"Prompt Injection", "Evaluation", "Optimization"},
				"Create a prompt that generates other prompts."),
		},
	},
	{
		Topic: models.Topic{Slug: "ai-tools", Title: "AI Tools Suite", Description: "Modern AI productivity.", Icon: "Cpu", TotalModules: 6},
		Tag:   "AI Tools",
		Modules: []models.Module{
			day("ai-tools", 1, "Text & Writing", "Deep dive into ChatGPT, Claude, and specialized tools.", "2 Hours",
				[]string{"Compare Model strengths", "Long-form content", "Summarization"},
				[]string{"LLMs", "Context Window", "Tokens"},
				"Generate a blog post and critique it with another AI."),
			day("ai-tools", 2, "Image Generation", "Midjourney, DALL-E 3, and Flux.", "2.5 Hours",
				[]string{"Prompting for images", "Aspect ratios", "In-painting"},
				[]string{"Diffusion Models", "Seeds", "Styles"},
				"Create a consistent character mascot in 3 poses."),
			day("ai-tools", 3, "Audio & Video", "ElevenLabs, Runway, and HeyGen.", "2.5 Hours",
				[]string{"Voice cloning", "Text-to-Video", "Avatar generation"},
				[]string{"Multimodal", "Lip-sync", "Synthesis"},
				"Create a 30-second intro video with AI avatar."),
			day("ai-tools", 4, "Research & Analysis", "Perplexity, Consensus, and Data Analyst tools.", "2 Hours",
				[]string{"Sourcing citations", "Analyzing CSVs", "Academic research"},
				[]string{"RAG", "Citations", "Data Visualization"},
				"Use Perplexity to research a niche topic with citations."),
			day("ai-tools", 5, "Productivity & Meetings", "Notion AI, Otter.ai, and Fireflies.", "2 Hours",
				[]string{"Meeting summaries", "Knowledge base management", "Email automation"},
				[]string{"Transcripts", "Action Items", "Integration"},
				"Set up a Notion database with AI properties."),
			day("ai-tools", 6, "Ethics & Safety", "Copyright, Bias, and the future of work.", "2 Hours",
				[]string{"Identify bias", "Understand usage rights", "Policy creation"},
				[]string{"Alignment", "Copyright", "Bias"},
				"Write a policy document for Acceptable AI Use."),
		},
	},
}

var builtinResources = []models.Resource{
	{Title: "n8n Crash Course", Type: models.ResourceVideo, URL: "https://www.youtube.com/watch?v=sIq9tKjH3Jc", Duration: "45m", Tags: []string{"n8n", "Fundamentals"}, Difficulty: "Beginner"},
	{Title: "JSON in n8n", Type: models.ResourceVideo, URL: "https://docs.n8n.io/data/json/", Duration: "20m", Tags: []string{"n8n", "Fundamentals"}, Difficulty: "Beginner"},
	{Title: "Cursor Editor: The Future of Coding", Type: models.ResourceVideo, URL: "https://www.cursor.com/", Duration: "15m", Tags: []string{"Vibe Coding", "Tools"}, Difficulty: "Beginner"},
	{Title: "Prompting for React Components", Type: models.ResourceArticle, URL: "https://react.dev/learn", Tags: []string{"Vibe Coding", "React"}, Difficulty: "Intermediate"},
	{Title: "Debugging with ChatGPT", Type: models.ResourceVideo, URL: "https://openai.com/chatgpt", Duration: "10m", Tags: []string{"Vibe Coding", "Debugging"}, Difficulty: "Beginner"},
	{Title: "The Art of the Prompt", Type: models.ResourcePDF, URL: "https://help.openai.com/en/articles/6654000-best-practices-for-prompt-engineering-with-openai-api", Tags: []string{"Prompt Eng", "Guide"}, Difficulty: "Beginner"},
	{Title: "Chain of Thought Reasoning", Type: models.ResourceArticle, URL: "https://www.promptingguide.ai/techniques/cot", Tags: []string{"Prompt Eng", "Advanced"}, Difficulty: "Advanced"},
	{Title: "System Prompts 101", Type: models.ResourceVideo, URL: "https://platform.openai.com/docs/guides/prompt-engineering", Duration: "12m", Tags: []string{"Prompt Eng", "System"}, Difficulty: "Intermediate"},
	{Title: "Midjourney Masterclass", Type: models.ResourceVideo, URL: "https://docs.midjourney.com/", Duration: "1h", Tags: []string{"AI Tools", "Images"}, Difficulty: "Intermediate"},
	{Title: "Perplexity for Research", Type: models.ResourceVideo, URL: "https://www.perplexity.ai/", Duration: "15m", Tags: []string{"AI Tools", "Research"}, Difficulty: "Beginner"},
	{Title: "ElevenLabs Voice Cloning", Type: models.ResourceWorkflow, URL: "https://elevenlabs.io/", Tags: []string{"AI Tools", "Audio"}, Difficulty: "Advanced"},
}

func findSeed(slug string) (seedTopic, bool) {
	for _, s := range builtin {
		if s.Topic.Slug == slug {
			return s, true
		}
	}
	return seedTopic{}, false
}

// SeedTopics returns copies of the built-in topics.
func SeedTopics() []models.Topic {
	out := make([]models.Topic, 0, len(builtin))
	for _, s := range builtin {
		out = append(out, s.Topic)
	}
	return out
}

// SeedCurriculum returns copies of the built-in modules of slug, or nil.
func SeedCurriculum(slug string) []models.Module {
	s, ok := findSeed(slug)
	if !ok {
		return nil
	}
	out := make([]models.Module, len(s.Modules))
	copy(out, s.Modules)
	return out
}

func topicTag(slug string) string {
	if s, ok := findSeed(slug); ok {
		return s.Tag
	}
	return slug
}
