package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/game"
	"github.com/3bbing/friends-pyramid/internal/hub"
	"github.com/3bbing/friends-pyramid/internal/questions"
	"github.com/3bbing/friends-pyramid/internal/store"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

const publicURL = "https://pyramid.test"

// newServer serves a single pool with numCards cards.
func newServer(t *testing.T, numCards int) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cards := make([]map[string]string, numCards)
	for i := range cards {
		cards[i] = map[string]string{"question": fmt.Sprintf("Frage %d?", i), "optionA": "Ja", "optionB": "Nein"}
	}
	raw, err := json.Marshal(cards)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questions.json"), raw, 0o644))

	log := zap.NewNop()
	mem := store.NewMemory()
	pools, err := questions.NewProvider(dir, mem, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx)

	issuer, err := auth.NewIssuer("test-secret", 0)
	require.NoError(t, err)

	svc := game.NewService(mem, mem, pools, h, log, game.DefaultOptions())
	srv := httptest.NewServer(SetupRoutes(Deps{Service: svc, Issuer: issuer, Hub: h, Log: log, PublicURL: publicURL}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, session string, body any, out any) int {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type team struct {
	api.CreateTeamResponse
	sessions []string
	players  []engine.Player
}

func setupTeam(t *testing.T, srv *httptest.Server, numPlayers int) team {
	t.Helper()
	var tm team
	status := do(t, srv, http.MethodPost, "/api/teams", "", api.CreateTeamRequest{Name: "Freunde", Password: "geheim"}, &tm.CreateTeamResponse)
	require.Equal(t, http.StatusCreated, status)

	for i := 0; i < numPlayers; i++ {
		var jr api.JoinResponse
		status := do(t, srv, http.MethodPost, "/api/teams/"+tm.TeamID+"/join", "",
			api.JoinRequest{Token: tm.InviteToken, Password: "geheim", Name: fmt.Sprintf("P%d", i)}, &jr)
		require.Equal(t, http.StatusOK, status)
		tm.sessions = append(tm.sessions, jr.Session)
		tm.players = append(tm.players, jr.Player)
	}
	return tm
}

func intPtr(v int) *int { return &v }

func TestCreateAndJoin(t *testing.T) {
	srv := newServer(t, 10)
	tm := setupTeam(t, srv, 2)

	assert.True(t, strings.HasPrefix(tm.InviteURL, publicURL+"/join?"))
	assert.Contains(t, tm.InviteURL, url.QueryEscape(tm.InviteToken))
	assert.True(t, tm.players[0].IsHost)
	assert.False(t, tm.players[1].IsHost)

	var er api.ErrorResponse
	status := do(t, srv, http.MethodPost, "/api/teams", "", api.CreateTeamRequest{Name: "freunde", Password: "geheim"}, &er)
	assert.Equal(t, http.StatusConflict, status)

	// Join by team name works too.
	status = do(t, srv, http.MethodPost, "/api/teams/Freunde/join", "",
		api.JoinRequest{Token: tm.InviteToken, Password: "geheim"}, nil)
	assert.Equal(t, http.StatusOK, status)

	cases := []struct {
		name string
		path string
		req  api.JoinRequest
		want int
	}{
		{"wrong password", "/api/teams/" + tm.TeamID + "/join", api.JoinRequest{Token: tm.InviteToken, Password: "falsch"}, http.StatusUnauthorized},
		{"wrong token", "/api/teams/" + tm.TeamID + "/join", api.JoinRequest{Token: "nope", Password: "geheim"}, http.StatusForbidden},
		{"unknown team", "/api/teams/ghost/join", api.JoinRequest{Password: "geheim"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(t, srv, http.MethodPost, tc.path, "", tc.req, nil))
		})
	}
}

func TestJoinSetsCookie(t *testing.T) {
	srv := newServer(t, 10)
	tm := setupTeam(t, srv, 0)

	body := fmt.Sprintf(`{"token":%q,"password":"geheim"}`, tm.InviteToken)
	resp, err := srv.Client().Post(srv.URL+"/api/teams/"+tm.TeamID+"/join", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/state", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	stateResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer stateResp.Body.Close()
	assert.Equal(t, http.StatusOK, stateResp.StatusCode)
}

func TestActionFlow(t *testing.T) {
	srv := newServer(t, 10)
	tm := setupTeam(t, srv, 3)
	host, p1, p2 := tm.sessions[0], tm.sessions[1], tm.sessions[2]

	var ar api.ActionResponse
	status := do(t, srv, http.MethodPost, "/api/action", host,
		api.ActionRequest{TeamID: tm.TeamID, Action: api.ActionStartGame, Depth: intPtr(2)}, &ar)
	require.Equal(t, http.StatusOK, status)
	require.True(t, ar.OK)
	require.Equal(t, engine.PhaseRoundActive, ar.Lobby.State.Phase)
	require.Len(t, ar.Lobby.State.Pyramid.Nodes, 3)

	for _, s := range []struct {
		session, path string
	}{{host, "LR"}, {p1, "LR"}, {p2, "RL"}} {
		status = do(t, srv, http.MethodPost, "/api/action", s.session,
			api.ActionRequest{Action: api.ActionSubmitAnswers, Path: s.path}, &ar)
		require.Equal(t, http.StatusOK, status)
	}
	require.Equal(t, engine.PhaseRoundReveal, ar.Lobby.State.Phase)
	assert.Equal(t, 4, ar.Lobby.State.Scores[tm.players[1].ID].Points)
	assert.Equal(t, 0, ar.Lobby.State.Scores[tm.players[2].ID].Points)

	var sr api.StateResponse
	status = do(t, srv, http.MethodGet, "/api/state?team_id="+tm.TeamID, p2, nil, &sr)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, sr.Lobby.History, 1)
	assert.NotZero(t, sr.Now)
}

func TestActionErrors(t *testing.T) {
	srv := newServer(t, 5)
	tm := setupTeam(t, srv, 2)
	host, guest := tm.sessions[0], tm.sessions[1]

	cases := []struct {
		name     string
		session  string
		req      api.ActionRequest
		want     int
		maxDepth int
	}{
		{"no session", "", api.ActionRequest{Action: api.ActionStartGame}, http.StatusUnauthorized, 0},
		{"not host", guest, api.ActionRequest{Action: api.ActionStartGame}, http.StatusForbidden, 0},
		{"too deep", host, api.ActionRequest{Action: api.ActionStartGame, Depth: intPtr(3)}, http.StatusUnprocessableEntity, 2},
		{"not active", guest, api.ActionRequest{Action: api.ActionSubmitAnswers, Path: "LR"}, http.StatusConflict, 0},
		{"unknown action", host, api.ActionRequest{Action: "dance"}, http.StatusBadRequest, 0},
		{"other team", host, api.ActionRequest{TeamID: "elsewhere", Action: api.ActionForceReveal}, http.StatusForbidden, 0},
		{"empty card", guest, api.ActionRequest{Action: api.ActionAddQuestion}, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var er api.ErrorResponse
			status := do(t, srv, http.MethodPost, "/api/action", tc.session, tc.req, &er)
			assert.Equal(t, tc.want, status)
			assert.NotEmpty(t, er.Error)
			assert.Equal(t, tc.maxDepth, er.MaxDepth)
		})
	}

	status := do(t, srv, http.MethodPost, "/api/action", host,
		api.ActionRequest{Action: api.ActionStartGame, Depth: intPtr(2)}, nil)
	require.Equal(t, http.StatusOK, status)
	status = do(t, srv, http.MethodPost, "/api/action", guest,
		api.ActionRequest{Action: api.ActionSubmitAnswers, Path: "L"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestActionForm(t *testing.T) {
	srv := newServer(t, 10)
	tm := setupTeam(t, srv, 1)

	form := url.Values{}
	form.Set("action", api.ActionStartGame)
	form.Set("depth", "2")
	form.Set("timer", "120")
	form.Add("pools[]", questions.FallbackPool)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/action", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+tm.sessions[0])
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ar api.ActionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ar))
	assert.Equal(t, 120, ar.Lobby.State.TimerSeconds)
	assert.Equal(t, []string{questions.FallbackPool}, ar.Lobby.State.SelectedPools)
}

func TestPoolsAndInvite(t *testing.T) {
	srv := newServer(t, 10)
	tm := setupTeam(t, srv, 1)

	var pr api.PoolsResponse
	status := do(t, srv, http.MethodGet, "/api/pools", tm.sessions[0], nil, &pr)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, pr.Pools, 1)
	assert.Equal(t, 10, pr.Pools[0].Count)
	assert.Equal(t, 4, pr.MaxDepth)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/teams/"+tm.TeamID+"/invite.png", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tm.sessions[0])
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	status = do(t, srv, http.MethodGet, "/api/teams/other/invite.png", tm.sessions[0], nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
