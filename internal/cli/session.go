package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

const concludedStatus = "concluded"

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Game session commands",
	}

	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionMoveCmd())
	cmd.AddCommand(newSessionFinishCmd())

	return cmd
}

// boardFlag parses a --board value as JSON
func boardFlag(value string) (json.RawMessage, error) {
	if value == "" {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("--board must be valid JSON")
	}
	return json.RawMessage(value), nil
}

func newSessionCreateCmd() *cobra.Command {
	var board string

	cmd := &cobra.Command{
		Use:   "create <opponent>",
		Short: "Start a session against a player (username or id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawBoard, err := boardFlag(board)
			if err != nil {
				return err
			}

			req := map[string]any{"opponent": args[0]}
			if rawBoard != nil {
				req["board"] = rawBoard
			}

			var result Session
			if err := client.Post("/api/v1/sessions", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&board, "board", `["","","","","","","","",""]`, "Initial board as JSON")

	return cmd
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			if err := client.Get("/api/v1/sessions/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionListCmd() *cobra.Command {
	var player string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/sessions"
			if player != "" {
				path += "?player=" + url.QueryEscape(player)
			}

			var result SessionList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "Player id (defaults to the current player)")

	return cmd
}

func newSessionMoveCmd() *cobra.Command {
	var board, next, status string
	var conclude bool

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Submit a move as the current player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawBoard, err := boardFlag(board)
			if err != nil {
				return err
			}
			if conclude {
				status = concludedStatus
			}

			req := map[string]any{"next_move": next}
			if rawBoard != nil {
				req["board"] = rawBoard
			}
			if status != "" {
				req["status"] = status
			}

			var result MoveResult
			if err := client.Patch("/api/v1/sessions/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "New board as JSON")
	cmd.Flags().StringVar(&next, "next", "", "Player id who moves next (required)")
	cmd.Flags().StringVar(&status, "status", "", "Status marker to store with the move")
	cmd.Flags().BoolVar(&conclude, "conclude", false, "Conclude the session with this move")
	_ = cmd.MarkFlagRequired("next")

	return cmd
}

func newSessionFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish <id>",
		Short: "Conclude a session you are playing in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			if err := client.Post("/api/v1/sessions/"+url.PathEscape(args[0])+"/finish", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
