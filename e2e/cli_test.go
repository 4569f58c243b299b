package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/factory"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/testutil"
)

const adminToken = "e2e-admin"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "tttctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/tttctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

// player is a CLI user with their own credentials file
type player struct {
	cli       *cliRunner
	tokenFile string
}

func (r *cliRunner) player(t *testing.T) *player {
	t.Helper()
	return &player{cli: r, tokenFile: filepath.Join(t.TempDir(), "credentials")}
}

func (p *player) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", p.cli.serverURL,
		"--token-file", p.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(p.cli.binaryPath, fullArgs...)
	cmd.Env = cleanEnv()
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runJSON runs a command that must succeed and decodes its output
func (p *player) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	output, err := p.run(args...)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}

// signup registers and logs in, leaving credentials in the player's file
func (p *player) signup(t *testing.T, username string) playerResponse {
	t.Helper()

	var registered playerResponse
	p.runJSON(t, &registered, "player", "register",
		"--user", username,
		"--email", username+"@example.com",
		"--pass", "secret",
		"--name", username,
	)

	var auth authResponse
	p.runJSON(t, &auth, "player", "login", "--user", username, "--pass", "secret")
	require.Equal(t, registered.ID, auth.Player.ID)

	return registered
}

// cleanEnv drops TTT_* variables so only the flags configure the CLI
func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "TTT_") {
			env = append(env, kv)
		}
	}
	return env
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the real server on a free port and returns its URL
func startTestServer(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(factory.Config{
		Logger:         logger,
		IdentityConfig: identity.Config{BcryptCost: testutil.BcryptCost},
	})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Identity:   app.Identity,
		Sessions:   app.Sessions,
		Hub:        app.Hub,
		Registry:   app.Registry,
		AdminToken: adminToken,
	})

	cfg := api.DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, cfg, logger)
	require.NoError(t, server.Listen())

	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		_ = app.Close()
	})

	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	BusySession string `json:"busy_session"`
}

type authResponse struct {
	Player       playerResponse `json:"player"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

type sessionResponse struct {
	ID        string          `json:"id"`
	Initiator string          `json:"initiator"`
	Opponent  string          `json:"opponent"`
	NextMove  string          `json:"next_move"`
	Board     json.RawMessage `json:"board"`
	Status    string          `json:"status"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type moveResponse struct {
	SessionID string `json:"session_id"`
	NextMove  string `json:"next_move"`
	Status    string `json:"status"`
}

type reconcileResponse struct {
	Checked  int `json:"checked"`
	Repaired []struct {
		PlayerID string `json:"player_id"`
	} `json:"repaired"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	var resp healthResponse
	cli.player(t).runJSON(t, &resp, "health")
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))
	alice := cli.player(t)

	registered := alice.signup(t, "alice")
	assert.Equal(t, "alice", registered.Username)

	// Credentials were saved by login
	var me playerResponse
	alice.runJSON(t, &me, "player", "me")
	assert.Equal(t, registered.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)

	var updated playerResponse
	alice.runJSON(t, &updated, "player", "update", "--name", "Alice Cooper")
	assert.Equal(t, "Alice Cooper", updated.DisplayName)

	var found playerResponse
	alice.runJSON(t, &found, "player", "lookup", "alice@example.com")
	assert.Equal(t, registered.ID, found.ID)
	assert.Empty(t, found.Email)

	var refreshed authResponse
	alice.runJSON(t, &refreshed, "player", "refresh")
	assert.NotEmpty(t, refreshed.AccessToken)

	alice.runJSON(t, &me, "player", "me")
	assert.Equal(t, registered.ID, me.ID)

	output, err := alice.run("player", "logout")
	require.NoError(t, err, "output: %s", output)

	_, err = alice.run("player", "me")
	assert.Error(t, err)
}

func TestCLI_WrongPassword(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))
	alice := cli.player(t)
	alice.signup(t, "alice")

	output, err := alice.run("player", "login", "--user", "alice", "--pass", "nope")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")
}

func TestCLI_FullSessionFlow(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))
	alice := cli.player(t)
	bob := cli.player(t)

	alicePlayer := alice.signup(t, "alice")
	bobPlayer := bob.signup(t, "bob")

	// Alice starts a session against bob by username
	var created sessionResponse
	alice.runJSON(t, &created, "session", "create", "bob")
	assert.Equal(t, alicePlayer.ID, created.Initiator)
	assert.Equal(t, bobPlayer.ID, created.Opponent)
	assert.Equal(t, alicePlayer.ID, created.NextMove)

	// Both players are busy now
	var me playerResponse
	bob.runJSON(t, &me, "player", "me")
	assert.Equal(t, created.ID, me.BusySession)

	output, err := bob.run("session", "create", "alice")
	assert.Error(t, err)
	assert.Contains(t, output, "PLAYER_BUSY")

	// Bob cannot move out of turn
	output, err = bob.run("session", "move", created.ID, "--next", alicePlayer.ID,
		"--board", `["","","","","O","","","",""]`)
	assert.Error(t, err)
	assert.Contains(t, output, "WRONG_TURN")

	var move moveResponse
	alice.runJSON(t, &move, "session", "move", created.ID, "--next", bobPlayer.ID,
		"--board", `["X","","","","","","","",""]`)
	assert.Equal(t, bobPlayer.ID, move.NextMove)

	bob.runJSON(t, &move, "session", "move", created.ID, "--next", alicePlayer.ID,
		"--board", `["X","","","","O","","","",""]`)
	assert.Equal(t, alicePlayer.ID, move.NextMove)

	var got sessionResponse
	bob.runJSON(t, &got, "session", "get", created.ID)
	assert.JSONEq(t, `["X","","","","O","","","",""]`, string(got.Board))

	// Alice ends the game with her move
	alice.runJSON(t, &move, "session", "move", created.ID, "--next", bobPlayer.ID,
		"--board", `["X","X","X","","O","","","O",""]`, "--conclude")
	assert.Equal(t, "concluded", move.Status)

	output, err = bob.run("session", "move", created.ID, "--next", alicePlayer.ID)
	assert.Error(t, err)
	assert.Contains(t, output, "SESSION_CONCLUDED")

	// Both players are free to play again
	var rematch sessionResponse
	bob.runJSON(t, &rematch, "session", "create", alicePlayer.ID)
	assert.Equal(t, bobPlayer.ID, rematch.Initiator)

	var list sessionListResponse
	alice.runJSON(t, &list, "session", "list")
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, rematch.ID, list.Sessions[0].ID)
	assert.Equal(t, created.ID, list.Sessions[1].ID)

	var finished sessionResponse
	alice.runJSON(t, &finished, "session", "finish", rematch.ID)
	assert.Equal(t, "concluded", finished.Status)

	alice.runJSON(t, &me, "player", "me")
	assert.Empty(t, me.BusySession)
}

func TestCLI_AdminReconcile(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))
	alice := cli.player(t)
	bob := cli.player(t)
	alice.signup(t, "alice")
	bob.signup(t, "bob")

	var created sessionResponse
	alice.runJSON(t, &created, "session", "create", "bob")

	output, err := alice.run("admin", "reconcile", "--admin-token", "wrong")
	assert.Error(t, err)
	assert.Contains(t, output, "FORBIDDEN")

	var report reconcileResponse
	alice.runJSON(t, &report, "admin", "reconcile", "--admin-token", adminToken)
	assert.Equal(t, 2, report.Checked)
	assert.Empty(t, report.Repaired)
}
