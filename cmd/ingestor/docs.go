package main

//go:generate swag init -g cmd/ingestor/main.go -o docs

// @title           DEX Order Ingestion API
// @version         0.1.0
// @description     Webhook-driven order-book log ingestion and order state queries.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
