package firebase

import (
	"context"
	"fmt"

	firebaseSDK "firebase.google.com/go"
	"google.golang.org/api/option"
)

// App is a global variable to hold the initialized Firebase App object
var App *firebaseSDK.App

// Initialize creates the Firebase App from a service account key. projectID may be empty, in which case it is read
// from the credentials.
func Initialize(ctx context.Context, credentialsFile string, projectID string) error {
	var conf *firebaseSDK.Config
	if projectID != "" {
		conf = &firebaseSDK.Config{ProjectID: projectID}
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebaseSDK.NewApp(ctx, conf, opt)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}

	App = app
	return nil
}
