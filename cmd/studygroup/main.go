package main

import (
	"context"
	"flag"
	"log"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/firebase"
	"studygroup/internal/notify"
	repo "studygroup/internal/repository"
	"studygroup/internal/server"
	"studygroup/internal/store"

	"github.com/golang/glog"
)

func main() {
	// glog registers its flags on the default FlagSet.
	flag.Parse()
	defer glog.Flush()

	config.Config = config.Load()
	ctx := context.Background()

	if err := firebase.Initialize(ctx, config.Config.CredentialsFile, config.Config.ProjectID); err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	var meetingStore store.Store
	switch config.Config.Store {
	case config.StoreMemory:
		log.Println("⚠️ Using the in-memory store, meetings will not survive a restart")
		meetingStore = store.NewMemoryStore()
	case config.StoreFirestore:
		client, err := firebase.App.Firestore(ctx)
		if err != nil {
			log.Fatalf("❌ error creating Firestore client: %v\n", err)
		}
		defer client.Close()
		meetingStore = store.NewFirestoreStore(client)
	default:
		log.Fatalf("❌ Unknown store backend %q\n", config.Config.Store)
	}

	mailer := notify.NewEmailStub(config.Config.NotificationDelay)

	meetings := repo.NewRepository(meetingStore, mailer)
	meetings.NotificationTimeout = config.Config.NotificationTimeout

	provider, err := auth.NewFirebaseProvider(ctx, firebase.App)
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}
	authService := auth.NewService(provider, mailer, config.Config.AllowedEmailDomains, config.Config.SessionCookieExpiration)

	if err := server.Start(ctx, meetings, authService); err != nil {
		log.Fatalf("❌ %v\n", err)
	}
}
