package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error to stderr. Server errors keep their code.
func (o *Output) PrintError(err error) {
	var apiErr *APIError
	isAPIErr := errors.As(err, &apiErr)

	if o.format != "json" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	errData := map[string]string{"message": err.Error()}
	if isAPIErr {
		errData["code"] = apiErr.Code
		errData["message"] = apiErr.Message
	}
	data, _ := json.Marshal(map[string]any{"error": errData})
	fmt.Fprintln(os.Stderr, string(data))
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Session:
		o.printSession(v)
	case SessionList:
		o.printSessionList(v)
	case MoveResult:
		o.printMoveResult(v)
	case ReconcileReport:
		o.printReconcileReport(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	BusySession string    `json:"busy_session,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResult combines player and credentials
type AuthResult struct {
	Player       Player    `json:"player"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session response type
type Session struct {
	ID        string          `json:"id"`
	Initiator string          `json:"initiator"`
	Opponent  string          `json:"opponent"`
	NextMove  string          `json:"next_move"`
	Board     json.RawMessage `json:"board,omitempty"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionList response type
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// MoveResult response type
type MoveResult struct {
	SessionID string          `json:"session_id"`
	Board     json.RawMessage `json:"board,omitempty"`
	NextMove  string          `json:"next_move"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ReconcileReport response type
type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired []struct {
		PlayerID string `json:"player_id"`
		Previous string `json:"previous"`
		Current  string `json:"current"`
	} `json:"repaired"`
}

// HealthResult response type
type HealthResult struct {
	Status    string `json:"status"`
	Server    string `json:"server,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Username: %s\n", p.Username)
	if p.Email != "" {
		fmt.Fprintf(o.w, "Email: %s\n", p.Email)
	}
	if p.BusySession != "" {
		fmt.Fprintf(o.w, "In session: %s\n", p.BusySession)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.w, "Token: %s\n", a.AccessToken)
	fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printSession(s Session) {
	fmt.Fprintf(o.w, "Session: %s\n", s.ID)
	fmt.Fprintf(o.w, "Players: %s vs %s\n", s.Initiator, s.Opponent)
	if s.Status != "" {
		fmt.Fprintf(o.w, "Status: %s\n", s.Status)
	}
	fmt.Fprintf(o.w, "Next move: %s\n", s.NextMove)
	fmt.Fprintf(o.w, "Updated: %s\n", s.Timestamp.Format(time.RFC3339))
	o.printBoard(s.Board)
}

func (o *Output) printSessionList(l SessionList) {
	if len(l.Sessions) == 0 {
		fmt.Fprintln(o.w, "No sessions")
		return
	}
	for _, s := range l.Sessions {
		status := s.Status
		if status == "" {
			status = "in progress"
		}
		fmt.Fprintf(o.w, "%s  %s vs %s  [%s]  next: %s\n", s.ID, s.Initiator, s.Opponent, status, s.NextMove)
	}
}

func (o *Output) printMoveResult(m MoveResult) {
	fmt.Fprintln(o.w, "Move accepted")
	if m.Status != "" {
		fmt.Fprintf(o.w, "Status: %s\n", m.Status)
	}
	fmt.Fprintf(o.w, "Next move: %s\n", m.NextMove)
	o.printBoard(m.Board)
}

func (o *Output) printReconcileReport(r ReconcileReport) {
	fmt.Fprintf(o.w, "Checked %d players, repaired %d\n", r.Checked, len(r.Repaired))
	for _, rep := range r.Repaired {
		fmt.Fprintf(o.w, "  %s: %q -> %q\n", rep.PlayerID, rep.Previous, rep.Current)
	}
}

// printBoard draws a square grid when the board is a list of rows or a flat
// list with a square length; anything else is shown as raw JSON
func (o *Output) printBoard(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	rows, ok := boardRows(raw)
	if !ok {
		fmt.Fprintf(o.w, "Board: %s\n", string(raw))
		return
	}

	divider := strings.TrimSuffix(strings.Repeat("---+", len(rows)), "+")
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell == "" {
				cell = " "
			}
			cells[j] = " " + cell + " "
		}
		fmt.Fprintln(o.w, strings.Join(cells, "|"))
		if i < len(rows)-1 {
			fmt.Fprintln(o.w, divider)
		}
	}
}

func boardRows(raw json.RawMessage) ([][]string, bool) {
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
		for _, row := range rows {
			if len(row) != len(rows) {
				return nil, false
			}
		}
		return rows, true
	}

	var flat []string
	if err := json.Unmarshal(raw, &flat); err != nil || len(flat) == 0 {
		return nil, false
	}
	size := 1
	for size*size < len(flat) {
		size++
	}
	if size*size != len(flat) {
		return nil, false
	}
	rows = make([][]string, size)
	for i := range rows {
		rows[i] = flat[i*size : (i+1)*size]
	}
	return rows, true
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Server != "" {
		fmt.Fprintf(o.w, "Server: %s (%dms)\n", h.Server, h.LatencyMS)
	}
}
