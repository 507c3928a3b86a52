//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/consult"
	"github.com/medivoice/medivoice/internal/pipeline"
)

const (
	testSampleRate = 16000
	testDuration   = 3 * time.Second
	testTimeout    = 5 * time.Minute
)

// Runs against a real backend: MEDIVOICE_API_URL plus a token from the
// environment, the config file or `medivoice login`.
func loadTestConfig(t *testing.T) *config.Config {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			cfg = config.DefaultConfig()
		} else {
			t.Fatalf("could not load config: %v", err)
		}
	}
	if cfg.Backend.BaseURL == "" {
		t.Skipf("%s not set", config.EnvAPIURL)
	}
	if _, err := cfg.Credentials().Token(context.Background()); err != nil {
		t.Skipf("no credentials: %v", err)
	}
	return cfg
}

// writeTestTone writes a short 440 Hz mono WAV file.
func writeTestTone(t *testing.T) string {
	t.Helper()
	samples := int(testDuration.Seconds() * testSampleRate)
	pcm := new(bytes.Buffer)
	for i := 0; i < samples; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/testSampleRate) * 8000)
		_ = binary.Write(pcm, binary.LittleEndian, v)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+pcm.Len()))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(testSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(testSampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(pcm.Len()))
	buf.Write(pcm.Bytes())

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmitAgainstBackend(t *testing.T) {
	cfg := loadTestConfig(t)
	client := cfg.NewClient()

	blob, err := consult.LoadAudioFile(writeTestTone(t))
	if err != nil {
		t.Fatalf("load tone: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	engine := pipeline.New(client, cfg.ToPolicy(), cfg.Results.RecentLimit)
	var seen []pipeline.Status
	engine.OnStatus(func(s pipeline.Status) { seen = append(seen, s) })

	name := "integration " + time.Now().Format(time.RFC3339)
	res, err := engine.Submit(ctx, blob, name)
	if err != nil {
		if consult.IsFinalizeKind(err, consult.FinalizeTimeout) {
			t.Skipf("backend did not finish within %s: %v", cfg.Finalize.Deadline, err)
		}
		t.Fatalf("Submit: %v", err)
	}
	t.Logf("statuses: %v", seen)
	t.Logf("consult %s: %q", res.Details.ID, res.Details.DisplayName)

	if res.Details.ID == "" {
		t.Error("expected a job id in the result")
	}

	details, err := client.Details(ctx, res.Details.ID)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.ID != res.Details.ID {
		t.Errorf("Details id = %s, want %s", details.ID, res.Details.ID)
	}

	if err := client.Delete(ctx, res.Details.ID); err != nil {
		t.Errorf("cleanup Delete: %v", err)
	}
}

func TestAccountAgainstBackend(t *testing.T) {
	cfg := loadTestConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	profile, stats, err := fetchAccount(ctx, cfg.NewClient())
	if err != nil {
		t.Fatalf("fetchAccount: %v", err)
	}
	t.Logf("profile=%+v stats=%+v", profile, stats)
}
