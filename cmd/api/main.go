// backend-go/cmd/api/main.go
//
// Ops server: Drive snapshot sync and batch run telemetry, kept off the main
// serving port.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/retailinsight/backend-go/internal/config"
	"github.com/retailinsight/backend-go/internal/drive"
	"github.com/retailinsight/backend-go/internal/repository"
	"github.com/retailinsight/backend-go/internal/repository/postgres"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	r := mux.NewRouter()

	// Drive sync is optional; without credentials the ops server only
	// exposes run telemetry.
	credentials := os.Getenv("GOOGLE_DRIVE_CREDENTIALS_JSON")
	if credentials == "" && cfg.Drive.Enabled {
		data, err := os.ReadFile(cfg.Drive.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to read drive credentials: %v", err)
		}
		credentials = string(data)
	}
	if credentials != "" {
		driveService, err := drive.NewService(credentials)
		if err != nil {
			log.Fatalf("Failed to initialize Google Drive service: %v", err)
		}
		syncer := drive.NewSyncer(driveService, cfg.Drive.FolderPath, cfg.App.DataDir)
		drive.NewHandler(driveService, syncer).RegisterRoutes(r)
	}

	// Run telemetry endpoint
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Printf("Database unavailable, run telemetry disabled: %v", err)
	} else {
		var runs repository.RunStore = postgres.NewRunRepository(db)
		r.HandleFunc("/api/runs", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			latest, err := runs.LatestRuns(req.Context(), limit)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(latest)
		}).Methods("GET")
	}

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.OpsPort)
	log.Printf("Ops server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
