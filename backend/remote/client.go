package remote

import (
	"gorm.io/gorm"

	"github.com/vidana-academy/learning-hub/backend/models"
)

// Client groups the collections the application reads and writes together with
// the auth client.
type Client struct {
	Profiles  Collection[models.Profile]
	Topics    Collection[models.Topic]
	Modules   Collection[models.Module]
	Resources Collection[models.Resource]
	Progress  Collection[models.UserProgress]
	Auth      Auth
}

func NewClient(db *gorm.DB, auth Auth) *Client {
	return &Client{
		Profiles:  NewCollection[models.Profile](db),
		Topics:    NewCollection[models.Topic](db),
		Modules:   NewCollection[models.Module](db),
		Resources: NewCollection[models.Resource](db),
		Progress:  NewCollection[models.UserProgress](db),
		Auth:      auth,
	}
}
