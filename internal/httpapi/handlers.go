package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/3bbing/friends-pyramid/internal/auth"
	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/game"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
	"github.com/3bbing/friends-pyramid/internal/store"
	api "github.com/3bbing/friends-pyramid/pkg/types"
)

var ErrBadRequest = errors.New("bad request body")

const maxBodyBytes = 1 << 16

func CreateTeam(svc *game.Service, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateTeamRequest
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}

		team, err := svc.CreateTeam(r.Context(), req.Name, req.Password)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, api.CreateTeamResponse{
			TeamID:      team.ID,
			Name:        team.Name,
			InviteToken: team.InviteToken,
			InviteURL:   InviteURL(publicURL, team),
		})
	}
}

// JoinTeam accepts a team id or name in the path and sets the session cookie.
func JoinTeam(svc *game.Service, issuer *auth.Issuer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.JoinRequest
		if err := decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}

		team, err := svc.FindTeam(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		player, lobby, err := svc.JoinTeam(r.Context(), team.ID, req.Token, req.Password, req.Name)
		if err != nil {
			writeError(w, log, err)
			return
		}

		session, err := issuer.Issue(auth.Identity{PlayerID: player.ID, TeamID: team.ID})
		if err != nil {
			writeError(w, log, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookie,
			Value:    session,
			Path:     "/",
			MaxAge:   int(auth.DefaultTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, api.JoinResponse{Player: player, Session: session, Lobby: lobby})
	}
}

// InviteQR renders the team's invite link as a PNG. Only members can fetch it.
func InviteQR(svc *game.Service, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		if chi.URLParam(r, "id") != id.TeamID {
			writeError(w, log, game.ErrTeamMismatch)
			return
		}
		team, err := svc.FindTeam(r.Context(), id.TeamID)
		if err != nil {
			writeError(w, log, err)
			return
		}

		png, err := qrcode.Encode(InviteURL(publicURL, team), qrcode.Medium, 256)
		if err != nil {
			writeError(w, log, fmt.Errorf("render invite qr: %w", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = w.Write(png)
	}
}

func Pools(svc *game.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		resp, err := svc.PoolOverview(r.Context(), id.TeamID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// State returns the caller's lobby. Polling it is what expires timed rounds.
func State(svc *game.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		if teamID := r.URL.Query().Get("team_id"); teamID != "" && teamID != id.TeamID {
			writeError(w, log, game.ErrTeamMismatch)
			return
		}

		lobby, now, err := svc.State(r.Context(), id.TeamID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, api.StateResponse{Lobby: lobby, Now: now.Unix()})
	}
}

// Action accepts a JSON body or a form post.
func Action(svc *game.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())

		req, err := decodeAction(r)
		if err != nil {
			writeError(w, log, err)
			return
		}

		lobby, err := svc.Act(r.Context(), id, req)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, api.ActionResponse{OK: true, Lobby: &lobby})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// InviteURL is the link players open to join the team.
func InviteURL(publicURL string, team store.Team) string {
	q := url.Values{}
	q.Set("team", team.ID)
	q.Set("token", team.InviteToken)
	return publicURL + "/join?" + q.Encode()
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func decodeAction(r *http.Request) (api.ActionRequest, error) {
	var req api.ActionRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return req, decode(r, &req)
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	optInt := func(key string) (*int, error) {
		raw := r.PostForm.Get(key)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, key, err)
		}
		return &v, nil
	}

	req = api.ActionRequest{
		TeamID:   r.PostForm.Get("team_id"),
		Action:   r.PostForm.Get("action"),
		Pools:    append(r.PostForm["pools"], r.PostForm["pools[]"]...),
		Path:     r.PostForm.Get("path"),
		Question: r.PostForm.Get("question"),
		OptionA:  r.PostForm.Get("optionA"),
		OptionB:  r.PostForm.Get("optionB"),
	}
	req.Global, _ = strconv.ParseBool(r.PostForm.Get("global"))

	var err error
	if req.Depth, err = optInt("depth"); err != nil {
		return req, err
	}
	if req.Timer, err = optInt("timer"); err != nil {
		return req, err
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	body := game.ErrorBody(err)
	if errors.Is(err, ErrBadRequest) {
		body.Error = err.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, pyramid.ErrInvalidPath),
		errors.Is(err, pyramid.ErrMissingQuestion),
		errors.Is(err, pyramid.ErrMissingOptionA),
		errors.Is(err, pyramid.ErrMissingOptionB),
		errors.Is(err, game.ErrUnknownAction),
		errors.Is(err, game.ErrMissingTeamName),
		errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrUnauthorized),
		errors.Is(err, engine.ErrUnknownPlayer),
		errors.Is(err, game.ErrTeamMismatch),
		errors.Is(err, game.ErrBadInvite):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotActiveRound),
		errors.Is(err, store.ErrTeamNameTaken):
		return http.StatusConflict
	case errors.Is(err, pyramid.ErrInsufficientCards):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
