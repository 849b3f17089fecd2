package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/hearth/internal/events"
)

type eventMsg events.Event

type healthMsg struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	BootID        string  `json:"boot_id"`
	Running       bool    `json:"running"`
	Tick          uint64  `json:"tick"`
	FPS           float64 `json:"fps"`
}

type scheduleMsg struct {
	Workers     int        `json:"workers"`
	Waves       [][]string `json:"waves"`
	Parallel    groupJSON  `json:"parallel"`
	ThreadLocal groupJSON  `json:"thread_local"`
}

type groupJSON struct {
	Fingerprint string     `json:"fingerprint"`
	Units       []unitJSON `json:"units"`
}

type unitJSON struct {
	Name     string   `json:"name"`
	Owner    string   `json:"owner"`
	Priority int      `json:"priority"`
	After    []string `json:"after"`
	Before   []string `json:"before"`
	Wave     int      `json:"wave"`
}

type clockMsg time.Time

type errMsg error

type sseDisconnectedMsg struct{}
type reconnectMsg struct{}

// subscribeToEvents reads the SSE stream into ch until the connection drops.
func subscribeToEvents(apiURL, apiKey string, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest(http.MethodGet, apiURL+"/events", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return sseDisconnectedMsg{}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("events: %s", resp.Status))
		}

		readSSE(bufio.NewScanner(resp.Body), ch)
		return sseDisconnectedMsg{}
	}
}

func readSSE(scanner *bufio.Scanner, ch chan<- events.Event) {
	var cur events.Event
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(cur.Data) > 0 {
				cur.At = time.Now()
				ch <- cur
			}
			cur = events.Event{}
		case strings.HasPrefix(line, "id: "):
			if id, err := strconv.ParseInt(line[4:], 10, 64); err == nil {
				cur.ID = id
			}
		case strings.HasPrefix(line, "event: "):
			cur.Type = line[7:]
		case strings.HasPrefix(line, "data: "):
			cur.Data = []byte(line[6:])
		}
	}
}

func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func getJSON(apiURL, apiKey, path string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL, apiKey, "/healthz", &h); err != nil {
		return errMsg(err)
	}
	return h
}

func fetchSchedule(apiURL, apiKey string) tea.Msg {
	var s scheduleMsg
	if err := getJSON(apiURL, apiKey, "/schedule", &s); err != nil {
		return errMsg(err)
	}
	return s
}
