// Command shadow_compare replays read-only requests against the Django LMS
// and the Go API and reports response differences. Used during cutover to
// make sure the Go port answers catalog and learning endpoints the same way.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Token    string `json:"token,omitempty"`
	Critical bool   `json:"critical"`
}

// defaultEndpoints covers the public surface when no targets file is given.
var defaultEndpoints = []endpoint{
	{Method: http.MethodGet, Path: "/health", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/courses", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/courses/categories", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/leaderboard"},
	{Method: http.MethodGet, Path: "/api/v1/discussions"},
}

type result struct {
	Endpoint      endpoint
	GoStatus      int
	LegacyStatus  int
	StatusMatch   bool
	BodyMatch     bool
	GoDuration    time.Duration
	LegacyElapsed time.Duration
	Err           error
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:8000", "Django API base URL")
	flag.StringVar(&targetsPath, "targets", "", "optional JSON file with endpoints to replay")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	endpoints := defaultEndpoints
	if targetsPath != "" {
		loaded, err := loadEndpoints(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		endpoints = loaded
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	fmt.Println("Legacy parity report")
	fmt.Println("====================")
	for _, e := range endpoints {
		res := compare(client, goBase, legacyBase, e)
		printResult(res)
		if e.Critical && (res.Err != nil || !res.StatusMatch || !res.BodyMatch) {
			breaking++
		}
	}

	fmt.Printf("Breaking diffs: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadEndpoints(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg struct {
		Endpoints []endpoint `json:"endpoints"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints defined in %s", path)
	}
	return cfg.Endpoints, nil
}

func compare(client *http.Client, goBase, legacyBase string, e endpoint) result {
	res := result{Endpoint: e}

	goStatus, goBody, goDur, err := fetch(client, goBase, e)
	if err != nil {
		res.Err = fmt.Errorf("go request failed: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacyBase, e)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.GoStatus = goStatus
	res.LegacyStatus = legacyStatus
	res.GoDuration = goDur
	res.LegacyElapsed = legacyDur
	res.StatusMatch = goStatus == legacyStatus
	res.BodyMatch = bodiesEqual(goBody, legacyBody)
	return res
}

func fetch(client *http.Client, base string, e endpoint) (int, []byte, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(e.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := strings.TrimRight(base, "/") + e.Path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize folds integral floats so 5000 and 5000.0 compare equal across
// the two JSON encoders.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printResult(res result) {
	status := "OK"
	if res.Err != nil {
		status = "ERROR"
	} else if !res.StatusMatch || !res.BodyMatch {
		status = "DIFF"
	}
	fmt.Printf("[%s] %s %s\n", status, res.Endpoint.Method, res.Endpoint.Path)
	if res.Err != nil {
		fmt.Printf("  error: %v\n", res.Err)
		return
	}
	fmt.Printf("  go=%d (%s) legacy=%d (%s) status_match=%t body_match=%t\n",
		res.GoStatus, res.GoDuration, res.LegacyStatus, res.LegacyElapsed, res.StatusMatch, res.BodyMatch)
}
