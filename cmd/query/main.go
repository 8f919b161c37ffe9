package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"termdeposit/client"
	"termdeposit/config"
)

func main() {
	host := flag.String("host", "", "API server address.")
	port := flag.Int("port", 0, "API server port.")
	data := flag.String("data", "", "Customer data in JSON string format.")
	env := flag.String("env", "", "Runtime environment: dev, staging or production.")
	flag.Parse()

	overrides := config.Overrides{}
	if *env != "" {
		overrides["env"] = *env
	}
	settings, err := config.Load(overrides)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *host == "" {
		*host = settings.Host
	}
	if *port == 0 {
		*port = settings.Port
	}

	os.Exit(run(client.New(*host, *port), *data, settings.DatasetPath()))
}

func run(c *client.Client, data, datasetPath string) int {
	var (
		payload interface{}
		truth   string
		sampled bool
	)
	if data == "" {
		fmt.Println("No input data. Sampling the dataset.")
		fmt.Println()
		sample, err := client.SampleDataset(datasetPath, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			return 1
		}
		payload, truth, sampled = sample.Record, sample.Truth, true
	} else {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			fmt.Printf("ERROR: --data is not valid JSON: %v\n", err)
			return 1
		}
		payload = raw
	}

	fmt.Printf("Sending data to %s:\n", c.PredictURL())
	printJSON(payload)
	fmt.Println()

	result, err := c.Predict(context.Background(), payload)
	if err != nil {
		var statusErr *client.HTTPStatusError
		switch {
		case errors.As(err, &statusErr):
			fmt.Printf("HTTP Error occurred: %v\n", statusErr)
			fmt.Printf("Response body: %s\n", statusErr.Body)
		case errors.Is(err, client.ErrConnection):
			fmt.Printf("Error Connecting: %v\n", err)
		case errors.Is(err, client.ErrTimeout):
			fmt.Printf("Timeout Error: %v\n", err)
		default:
			fmt.Printf("An unexpected error occurred: %v\n", err)
		}
		return 1
	}

	fmt.Println("Query result")
	printJSON(result)
	if sampled {
		fmt.Println()
		fmt.Println("Ground truth")
		fmt.Println(truth)
	}
	return 0
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}
