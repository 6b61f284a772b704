package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type JoinResponse struct {
	Code   string `json:"code"`
	Token  string `json:"token"`
	IsHost bool   `json:"isHost"`
	Player struct {
		ID       string `json:"id"`
		Nickname string `json:"nickname"`
	} `json:"player"`
}

type RoomState struct {
	Code    string `json:"code"`
	Phase   string `json:"phase"`
	Host    string `json:"hostNickname"`
	Players []struct {
		ID           string `json:"id"`
		Nickname     string `json:"nickname"`
		IsEliminated bool   `json:"isEliminated"`
		Role         string `json:"role"`
	} `json:"players"`
	Round *struct {
		Number       int      `json:"number"`
		TiePlayerIDs []string `json:"tiePlayerIds"`
		Outcome      *Outcome `json:"outcome"`
	} `json:"round"`
	Verdict *struct {
		Verdict    string `json:"verdict"`
		GameOver   bool   `json:"gameOver"`
		NextAction string `json:"nextAction"`
	} `json:"verdict"`
	You *struct {
		PlayerID string `json:"playerId"`
		Role     string `json:"role"`
		Word     string `json:"word"`
	} `json:"you"`
}

type Outcome struct {
	Kind               string `json:"kind"`
	EliminatedNickname string `json:"eliminatedNickname"`
	WasChameleon       bool   `json:"wasChameleon"`
	DictatorSurvived   bool   `json:"dictatorSurvived"`
}

type BallotResponse struct {
	BallotsCast   int      `json:"ballotsCast"`
	BallotsNeeded int      `json:"ballotsNeeded"`
	Outcome       *Outcome `json:"outcome"`
}

// CreateRoom opens a room with nickname as host
func (c *APIClient) CreateRoom(nickname string) (*JoinResponse, error) {
	var result JoinResponse
	err := c.do("POST", "/rooms", "", map[string]string{"nickname": nickname}, http.StatusCreated, &result)
	return &result, err
}

// JoinRoom adds nickname to an existing room
func (c *APIClient) JoinRoom(code, nickname string) (*JoinResponse, error) {
	var result JoinResponse
	err := c.do("POST", "/rooms/"+code+"/join", "", map[string]string{"nickname": nickname}, http.StatusOK, &result)
	return &result, err
}

// GetState fetches the room as the token holder sees it
func (c *APIClient) GetState(code, token string) (*RoomState, error) {
	var state RoomState
	err := c.do("GET", "/rooms/"+code+"/state", token, nil, http.StatusOK, &state)
	return &state, err
}

func (c *APIClient) StartGame(code, token string, settings map[string]interface{}) error {
	return c.do("POST", "/rooms/"+code+"/start", token, map[string]interface{}{"settings": settings}, http.StatusOK, nil)
}

func (c *APIClient) Ready(code, token string) error {
	return c.do("POST", "/rooms/"+code+"/ready", token, nil, http.StatusOK, nil)
}

func (c *APIClient) SubmitDrawing(code, token string, png []byte) error {
	req, err := http.NewRequest("PUT", c.baseURL+"/rooms/"+code+"/drawing", bytes.NewReader(png))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit drawing request failed: %w", err)
	}
	defer resp.Body.Close()
	return expectStatus(resp, http.StatusOK, nil)
}

func (c *APIClient) Reveal(code, token string) error {
	return c.do("POST", "/rooms/"+code+"/reveal", token, nil, http.StatusOK, nil)
}

func (c *APIClient) OpenVote(code, token string) error {
	return c.do("POST", "/rooms/"+code+"/vote/open", token, nil, http.StatusOK, nil)
}

func (c *APIClient) Vote(code, token, targetID string) (*BallotResponse, error) {
	var result BallotResponse
	err := c.do("POST", "/rooms/"+code+"/votes", token, map[string]string{"targetId": targetID}, http.StatusOK, &result)
	return &result, err
}

func (c *APIClient) Advance(code, token string) error {
	return c.do("POST", "/rooms/"+code+"/advance", token, nil, http.StatusOK, nil)
}

// HTTP helpers

func (c *APIClient) do(method, path, token string, body interface{}, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()
	return expectStatus(resp, wantStatus, out)
}

func expectStatus(resp *http.Response, want int, out interface{}) error {
	if resp.StatusCode != want {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed (status %d): %s", resp.Request.URL.Path, resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
