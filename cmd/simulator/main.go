package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/skip2/go-qrcode"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "populate":
		populateCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Party Simulator - Development tool for filling rooms with bots

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Create a room with bots, start a game and play rounds until it ends
  populate  Add bots to an existing room so you can play against them
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Five bots play a complete game
  simulator full --count=5

  # Two outsiders, chameleon and dictator enabled
  simulator full --count=7 --outsiders=2 --chameleon --dictator

  # Add 4 bots to a room you created in the browser
  simulator populate --room=ABCDE --count=4`)
}

type bot struct {
	nickname string
	token    string
}

func fail(step string, err error) {
	fmt.Printf("FAILED\n  %s: %v\n", step, err)
	os.Exit(1)
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	count := fs.Int("count", 5, "Number of bots including the host (3-12)")
	outsiders := fs.Int("outsiders", 1, "Outsider count (1-3)")
	chameleon := fs.Bool("chameleon", false, "Enable the Chameleon")
	dictator := fs.Bool("dictator", false, "Enable the Dictator")
	maxRounds := fs.Int("rounds", 10, "Stop after this many rounds")
	fs.Parse(args)

	if *count < 3 || *count > 12 {
		fmt.Println("Error: --count must be between 3 and 12")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Party Simulator: Full Game ===")
	fmt.Println()

	// 1. Host creates the room
	fmt.Print("Creating room... ")
	host, err := client.CreateRoom("Bot1")
	if err != nil {
		fail("create room", err)
	}
	code := host.Code
	fmt.Printf("OK (code: %s)\n", code)

	bots := []bot{{nickname: "Bot1", token: host.Token}}
	for i := 2; i <= *count; i++ {
		nickname := fmt.Sprintf("Bot%d", i)
		joined, err := client.JoinRoom(code, nickname)
		if err != nil {
			fail("join "+nickname, err)
		}
		bots = append(bots, bot{nickname: nickname, token: joined.Token})
		fmt.Printf("  [%d/%d] %s joined\n", i, *count, nickname)
	}

	// 2. Start
	fmt.Print("Starting game... ")
	settings := map[string]interface{}{
		"outsiderCount":    *outsiders,
		"chameleonEnabled": *chameleon,
		"dictatorEnabled":  *dictator,
	}
	if err := client.StartGame(code, host.Token, settings); err != nil {
		fail("start game", err)
	}
	fmt.Println("OK")

	// 3. Rounds
	for round := 1; round <= *maxRounds; round++ {
		state := playRound(client, code, bots)
		if state.Verdict == nil {
			fmt.Println("  no verdict after the vote, stopping")
			return
		}

		switch state.Verdict.NextAction {
		case "revote":
			fmt.Println("  revote opens")
			round--
			continue
		case "next_round":
			if err := client.Advance(code, host.Token); err != nil {
				fail("advance round", err)
			}
			continue
		}

		fmt.Println()
		fmt.Println("=========================================")
		fmt.Printf("  GAME OVER: %s\n", strings.ToUpper(state.Verdict.Verdict))
		fmt.Println("=========================================")
		for _, p := range state.Players {
			fmt.Printf("  %-8s %-10s eliminated=%v\n", p.Nickname, p.Role, p.IsEliminated)
		}
		return
	}
	fmt.Printf("Stopped after %d rounds\n", *maxRounds)
}

// playRound drives one round from WORD (or a reopened vote) to RESULTS and
// returns the host's view of the results.
func playRound(client *APIClient, code string, bots []bot) *RoomState {
	host := bots[0]
	state, err := client.GetState(code, host.token)
	if err != nil {
		fail("get state", err)
	}

	if state.Phase != "RESULTS" {
		fmt.Printf("\nRound %d\n", state.Round.Number)
	}

	alive := aliveBots(state, bots)
	switch state.Phase {
	case "WORD":
		for _, b := range alive {
			if err := client.Ready(code, b.token); err != nil {
				fail("ready "+b.nickname, err)
			}
		}
		fallthrough
	case "DRAW":
		for _, b := range alive {
			png, err := qrcode.Encode(b.nickname, qrcode.Low, 64)
			if err != nil {
				fail("render drawing", err)
			}
			if err := client.SubmitDrawing(code, b.token, png); err != nil {
				fail("drawing "+b.nickname, err)
			}
		}
		fmt.Printf("  %d drawings submitted\n", len(alive))
		fallthrough
	case "REVEAL":
		if err := client.Reveal(code, host.token); err != nil {
			fail("reveal", err)
		}
		fallthrough
	case "RESULTS":
		if err := client.OpenVote(code, host.token); err != nil {
			fail("open vote", err)
		}
	}

	// Every living bot votes for a random other eligible player.
	state, err = client.GetState(code, host.token)
	if err != nil {
		fail("get state", err)
	}
	targets := eligibleTargets(state)
	for _, b := range alive {
		self := playerID(state, b.nickname)
		candidates := make([]string, 0, len(targets))
		for _, id := range targets {
			if id != self {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		ballot, err := client.Vote(code, b.token, candidates[rand.IntN(len(candidates))])
		if err != nil {
			fail("vote "+b.nickname, err)
		}
		if ballot.Outcome != nil {
			printOutcome(ballot.Outcome)
		}
	}

	state, err = client.GetState(code, host.token)
	if err != nil {
		fail("get state", err)
	}
	return state
}

func aliveBots(state *RoomState, bots []bot) []bot {
	eliminated := map[string]bool{}
	for _, p := range state.Players {
		eliminated[p.Nickname] = p.IsEliminated
	}
	var alive []bot
	for _, b := range bots {
		if !eliminated[b.nickname] {
			alive = append(alive, b)
		}
	}
	return alive
}

func eligibleTargets(state *RoomState) []string {
	if state.Round != nil && len(state.Round.TiePlayerIDs) > 0 {
		return state.Round.TiePlayerIDs
	}
	var ids []string
	for _, p := range state.Players {
		if !p.IsEliminated {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func playerID(state *RoomState, nickname string) string {
	for _, p := range state.Players {
		if p.Nickname == nickname {
			return p.ID
		}
	}
	return ""
}

func printOutcome(o *Outcome) {
	switch o.Kind {
	case "eliminated":
		fmt.Printf("  %s was eliminated", o.EliminatedNickname)
		if o.WasChameleon {
			fmt.Print(" (the Chameleon)")
		}
		fmt.Println()
	case "dictator_survived":
		fmt.Println("  the Dictator survived the vote")
	default:
		fmt.Printf("  vote ended: %s\n", o.Kind)
	}
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	roomCode := fs.String("room", "", "Room code (required)")
	count := fs.Int("count", 4, "Number of bots to add")
	fs.Parse(args)

	if *roomCode == "" {
		fmt.Println("Error: --room is required")
		fmt.Println("\nUsage: simulator populate --room=ABCDE [--count=4]")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	code := strings.ToUpper(*roomCode)

	fmt.Printf("Adding %d bots to room %s...\n\n", *count, code)

	for i := 0; i < *count; i++ {
		nickname := fmt.Sprintf("Bot%d", i+1)
		if _, err := client.JoinRoom(code, nickname); err != nil {
			fmt.Printf("  [%d/%d] FAILED to join: %v\n", i+1, *count, err)
			continue
		}
		fmt.Printf("  [%d/%d] %s joined\n", i+1, *count, nickname)
	}

	fmt.Println()
	fmt.Println("Done! The bots stay idle; start the game from your browser.")
}
