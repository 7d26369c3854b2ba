// Command byteguardd runs the ByteGuard server: identity registry, blob
// store, and share ledger behind one HTTP listener.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	BYTEGUARD_ADDR          listen address        (default :5000)
//	BYTEGUARD_DATA_DIR      database directory    (default ./data)
//	BYTEGUARD_STORAGE_DIR   blob directory        (default ./storage)
//	BYTEGUARD_BLOB_BACKEND  "fs" or "minio"       (default fs)
//	BYTEGUARD_SESSION_TTL   session lifetime      (default 24h)
//	MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET,
//	MINIO_USE_SSL           object store settings for the minio backend
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/byteguard/byteguard-go/internal/blob"
	"github.com/byteguard/byteguard-go/internal/server"
	"github.com/byteguard/byteguard-go/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err == nil {
		log.Info("loaded .env")
	}

	addr := envOr("BYTEGUARD_ADDR", ":5000")
	dataDir := envOr("BYTEGUARD_DATA_DIR", "./data")
	storageDir := envOr("BYTEGUARD_STORAGE_DIR", "./storage")
	backend := envOr("BYTEGUARD_BLOB_BACKEND", "fs")

	sessionTTL := 24 * time.Hour
	if raw := os.Getenv("BYTEGUARD_SESSION_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.WithError(err).Fatal("invalid BYTEGUARD_SESSION_TTL")
		}
		sessionTTL = parsed
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		log.WithError(err).Fatal("create data dir")
	}

	db, err := store.Open(filepath.Join(dataDir, "byteguard.db"))
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	var blobs blob.Store
	switch backend {
	case "fs":
		blobs, err = blob.NewFilesystemStore(storageDir)
		if err != nil {
			log.WithError(err).Fatal("open blob store")
		}
	case "minio":
		blobs, err = blob.NewMinioStore(context.Background(), blob.MinioConfig{
			Endpoint:  envOr("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: envOr("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: envOr("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    envOr("MINIO_BUCKET", "byteguard"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		})
		if err != nil {
			log.WithError(err).Fatal("connect object store")
		}
	default:
		log.Fatalf("unknown blob backend %q", backend)
	}

	cfg := server.DefaultConfig()
	cfg.SessionTTL = sessionTTL

	srv := server.New(cfg, db, blobs, log)

	log.WithFields(logrus.Fields{
		"addr":    addr,
		"backend": backend,
	}).Info("byteguardd starting")

	if err := srv.Router().Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
