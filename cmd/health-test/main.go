package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

func main() {
	base := "http://localhost:8080"
	if len(os.Args) > 1 {
		base = os.Args[1]
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	url := base + "/health"
	fmt.Printf("🔍 Testing health endpoint: %s\n", url)

	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Error connecting to health endpoint: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("❌ Error reading response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📊 Response Status: %s\n", resp.Status)
	fmt.Printf("📄 Response Body: %s\n", string(body))

	if resp.StatusCode != 200 {
		fmt.Printf("❌ Health check failed with status: %d\n", resp.StatusCode)
		os.Exit(1)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("❌ Error parsing JSON response: %v\n", err)
		os.Exit(1)
	}

	if health.Services.Database.Status != "ok" {
		fmt.Printf("❌ Database unhealthy: %s\n", health.Services.Database.Error)
		os.Exit(1)
	}

	jobsURL := base + "/api/v1/jobs"
	fmt.Printf("🔍 Testing jobs endpoint: %s\n", jobsURL)

	jobsResp, err := client.Get(jobsURL)
	if err != nil {
		fmt.Printf("❌ Error connecting to jobs endpoint: %v\n", err)
		os.Exit(1)
	}
	defer jobsResp.Body.Close()

	if jobsResp.StatusCode != 200 {
		fmt.Printf("❌ Jobs endpoint failed with status: %d\n", jobsResp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("✅ All checks passed")
}
