package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rahulanurag9630/collaborative-text-editor/access"
	"github.com/rahulanurag9630/collaborative-text-editor/auth"
	"github.com/rahulanurag9630/collaborative-text-editor/server"
	"github.com/rahulanurag9630/collaborative-text-editor/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	backend := flag.String("store", "memory", "storage backend: memory, firestore or mongo")
	flag.Parse()

	ctx := context.Background()

	var (
		docs   store.DocumentStore
		mirror store.SessionStore
		oracle access.Oracle
		users  auth.UserDirectory
	)

	switch *backend {
	case "memory":
		mem := store.NewMemoryStore()
		docs, mirror = mem, mem
		oracle = access.NewMemoryOracle()
		users = auth.NewMemoryDirectory()
	case "firestore":
		projectID := os.Getenv("FIRESTORE_PROJECT")
		if projectID == "" {
			log.Fatal("FIRESTORE_PROJECT must be set for the firestore backend")
		}
		client, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatalf("firestore: %v", err)
		}
		fs := store.NewFirestoreStore(client)
		docs, mirror = fs, fs
		oracle = access.NewFirestoreOracle(client)
		users = auth.NewFirestoreDirectory(client)
	case "mongo":
		uri := os.Getenv("MONGO_URI")
		if uri == "" {
			log.Fatal("MONGO_URI must be set for the mongo backend")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		dbName := os.Getenv("MONGO_DB")
		if dbName == "" {
			dbName = "collab"
		}
		db := client.Database(dbName)
		ms := store.NewMongoStore(db)
		docs, mirror = ms, ms
		oracle = access.NewMongoOracle(db)
		users = auth.NewMongoDirectory(db)
	default:
		log.Fatalf("unknown store backend %q", *backend)
	}

	var verifier auth.Verifier
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		verifier = auth.NewJWTVerifier([]byte(secret))
	} else if *backend == "memory" {
		// Local development fallback: fixed token, seeded demo user and doc.
		log.Printf("JWT_SECRET not set, using static dev credentials (token %q)", "dev-token")
		verifier = auth.StaticVerifier{"dev-token": "dev-user"}
		if dir, ok := users.(*auth.MemoryDirectory); ok {
			dir.Add(auth.User{ID: "dev-user", Name: "Dev User", Email: "dev@localhost"})
		}
		if o, ok := oracle.(*access.MemoryOracle); ok {
			o.SetOwner("scratch", "dev-user")
		}
		if err := docs.Create(ctx, "scratch", "dev-user", "Scratch", ""); err != nil {
			log.Fatalf("seed document: %v", err)
		}
	} else {
		log.Fatal("JWT_SECRET must be set")
	}

	// Mirror rows surviving a restart are stale: the registry starts empty.
	if err := mirror.PurgeSessions(ctx); err != nil {
		log.Printf("failed to purge stale session rows: %v", err)
	}

	hub := server.NewHub(oracle, docs, mirror)
	go hub.Run()

	handler := server.NewHandler(hub, verifier, users)

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatal(err)
	}
}
