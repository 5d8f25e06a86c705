package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// ResultSubmission mirrors the match-result wire format on the results
// topic.
type ResultSubmission struct {
	PlayerID          string `json:"player_id"`
	Score             uint64 `json:"score"`
	CoalCollected     uint64 `json:"coal_collected"`
	OreCollected      uint64 `json:"ore_collected"`
	DiamondsCollected uint64 `json:"diamonds_collected"`
	EnemiesDefeated   uint8  `json:"enemies_defeated"`
}

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

func getPlayerID(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// registerPlayers creates the player records over the HTTP API so the
// consumer accepts their results.
func registerPlayers(apiBase string, total int) {
	client := &http.Client{Timeout: 5 * time.Second}
	registered := 0
	for i := 0; i < total; i++ {
		playerID := getPlayerID(i)
		body, _ := json.Marshal(map[string]string{"player_id": playerID})
		resp, err := client.Post(apiBase+"/api/v1/players", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("Failed to register %s: %v", playerID, err)
			continue
		}
		resp.Body.Close()
		// 409 means the player survived a previous run
		if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
			registered++
		} else {
			log.Printf("Unexpected status registering %s: %d", playerID, resp.StatusCode)
		}
	}
	fmt.Printf("✓ Registered %d/%d players\n\n", registered, total)
}

// randomResult produces a plausible match outcome, weighted so top-slot
// players keep the leaderboard moving.
func randomResult(playerID string, playerIdx int) ResultSubmission {
	var score uint64
	if playerIdx < 10 {
		score = uint64(rand.Intn(800) + 400)
	} else if playerIdx < 50 {
		score = uint64(rand.Intn(600) + 300)
	} else {
		score = uint64(rand.Intn(400) + 200)
	}

	return ResultSubmission{
		PlayerID:          playerID,
		Score:             score,
		CoalCollected:     uint64(rand.Intn(200)),
		OreCollected:      uint64(rand.Intn(80)),
		DiamondsCollected: uint64(rand.Intn(10)),
		EnemiesDefeated:   uint8(rand.Intn(30)),
	}
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-results", "Kafka topic for match results")
	apiBase := flag.String("api", "http://localhost:8080", "Game API base URL for player registration")
	totalPlayers := flag.Int("players", 1000, "Total number of players to create")
	updatesPerSecond := flag.Int("rate", 100, "Results per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	skipRegister := flag.Bool("skip-register", false, "Skip player registration (players already exist)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  ⛏  Dark Mine Load Generator")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  API:              %s\n", *apiBase)
	fmt.Printf("  Total Players:    %d\n", *totalPlayers)
	fmt.Printf("  Results/sec:      %d\n", *updatesPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if !*skipRegister {
		fmt.Printf("Registering %d players...\n", *totalPlayers)
		registerPlayers(*apiBase, *totalPlayers)
	}

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	sendResult := func(submission ResultSubmission) {
		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.PlayerID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	shutdown := func(reason string) {
		fmt.Printf("\n\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Streaming match results (%d/sec)\n", *updatesPerSecond)
	fmt.Println("Top players have 70% chance to be picked (to create movement)")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*updatesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var sentCount int64

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			// 70% chance to pick from the top 20 players
			var playerIdx int
			if rand.Intn(100) < 70 {
				playerIdx = rand.Intn(20)
			} else {
				playerIdx = rand.Intn(*totalPlayers-20) + 20
			}

			sendResult(randomResult(getPlayerID(playerIdx), playerIdx))
			atomic.AddInt64(&sentCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Results: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&sentCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
