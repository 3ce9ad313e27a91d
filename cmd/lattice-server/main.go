// Package main Brainlattice API Server
//
//	@title			Brainlattice API
//	@version		1.0
//	@description	PDF ingestion into a knowledge graph with Obsidian vault export
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"log"

	"brainlattice/internal/server"
)

func main() {
	log.Println("Starting Brainlattice server...")
	srv := server.NewServer()
	log.Printf("Listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
