package webapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guildpilot/internal/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	stateCookie    = "guildpilot_oauth_state"
	defaultDays    = 7
	maxDays        = 90
	maxPrefixLen   = 5
	maxBadWords    = 200
	unknownGuild   = "Unknown Guild"
	maxRequestBody = 1 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

type loginResponse struct {
	Token  string         `json:"token"`
	User   SessionUser    `json:"user"`
	Guilds []ManagedGuild `json:"guilds"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/auth", MaxAge: -1})

	identity, err := s.auth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	guilds := managedGuilds(identity.Guilds, s.botInGuild)
	session, err := s.sessions.Create(r.Context(), identity.User, guilds)
	if err != nil {
		s.logger.Error("session create failed", zap.String("user_id", identity.User.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	s.logger.Info("dashboard login", zap.String("user_id", identity.User.ID), zap.Int("guilds", len(guilds)))
	writeJSON(w, http.StatusOK, loginResponse{Token: session.Token, User: session.User, Guilds: session.Guilds})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      session.User,
		"guilds":    session.Guilds,
		"expiresAt": session.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFrom(r.Context())
	if err := s.sessions.Delete(r.Context(), session.Token); err != nil {
		s.logger.Warn("session delete failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) botInGuild(guildID string) bool {
	if s.guilds == nil {
		return true
	}
	_, ok := s.guilds.GuildName(guildID)
	return ok
}

func (s *Server) guildName(guildID string) string {
	if s.guilds != nil {
		if name, ok := s.guilds.GuildName(guildID); ok {
			return name
		}
	}
	return unknownGuild
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildId"]
	cfg, err := s.loadOrCreateConfig(r, guildID)
	if err != nil {
		s.logger.Error("get config failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch configuration")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) loadOrCreateConfig(r *http.Request, guildID string) (storage.GuildConfig, error) {
	existing, err := s.store.FindGuildConfig(r.Context(), guildID)
	if err != nil {
		return storage.GuildConfig{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	cfg := storage.DefaultGuildConfig(guildID, s.guildName(guildID))
	if err := s.store.UpsertGuildConfig(r.Context(), cfg); err != nil {
		return storage.GuildConfig{}, err
	}
	return cfg, nil
}

type autoModPatch struct {
	Enabled    *bool    `json:"enabled"`
	SpamLimit  *int     `json:"spamLimit"`
	CapsLimit  *float64 `json:"capsLimit"`
	Punishment *string  `json:"punishment"`
}

type moderationPatch struct {
	Enabled      *bool         `json:"enabled"`
	LogChannelID *string       `json:"logChannelId"`
	MuteRoleID   *string       `json:"muteRoleId"`
	AutoMod      *autoModPatch `json:"autoMod"`
	BadWords     *[]string     `json:"badWords"`
}

// configPatch is a partial GuildConfig. Absent fields keep their value,
// nested objects merge field by field.
type configPatch struct {
	Prefix     *string          `json:"prefix"`
	Moderation *moderationPatch `json:"moderation"`
	Language   *string          `json:"language"`
	Timezone   *string          `json:"timezone"`
}

type configResponse struct {
	Message string              `json:"message"`
	Config  storage.GuildConfig `json:"config"`
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildId"]

	var patch configPatch
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := s.loadOrCreateConfig(r, guildID)
	if err != nil {
		s.logger.Error("update config load failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}
	if msg := applyPatch(&cfg, patch); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.store.UpsertGuildConfig(r.Context(), cfg); err != nil {
		s.logger.Error("update config failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}

	session, _ := sessionFrom(r.Context())
	s.logger.Info("guild config updated", zap.String("guild_id", guildID), zap.String("user_id", session.User.ID))
	writeJSON(w, http.StatusOK, configResponse{Message: "Configuration updated successfully", Config: cfg})
}

// applyPatch merges patch into cfg and returns a validation message, or ""
// when the result is valid. cfg is only partially updated on failure.
func applyPatch(cfg *storage.GuildConfig, patch configPatch) string {
	if patch.Prefix != nil {
		prefix := strings.TrimSpace(*patch.Prefix)
		if prefix == "" || len([]rune(prefix)) > maxPrefixLen {
			return "prefix must be 1 to 5 characters"
		}
		cfg.Prefix = prefix
	}
	if patch.Language != nil {
		cfg.Language = strings.TrimSpace(*patch.Language)
	}
	if patch.Timezone != nil {
		tz := strings.TrimSpace(*patch.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return "unknown timezone"
		}
		cfg.Timezone = tz
	}

	mod := patch.Moderation
	if mod == nil {
		return ""
	}
	if mod.Enabled != nil {
		cfg.Moderation.Enabled = *mod.Enabled
	}
	if mod.LogChannelID != nil {
		cfg.Moderation.LogChannelID = strings.TrimSpace(*mod.LogChannelID)
	}
	if mod.MuteRoleID != nil {
		cfg.Moderation.MuteRoleID = strings.TrimSpace(*mod.MuteRoleID)
	}
	if mod.BadWords != nil {
		words := make([]string, 0, len(*mod.BadWords))
		for _, word := range *mod.BadWords {
			if word = strings.TrimSpace(word); word != "" {
				words = append(words, word)
			}
		}
		if len(words) > maxBadWords {
			return "too many bad words"
		}
		cfg.Moderation.BadWords = words
	}

	auto := mod.AutoMod
	if auto == nil {
		return ""
	}
	if auto.Enabled != nil {
		cfg.Moderation.AutoMod.Enabled = *auto.Enabled
	}
	if auto.SpamLimit != nil {
		if *auto.SpamLimit < 0 || *auto.SpamLimit > 100 {
			return "spamLimit must be between 0 and 100"
		}
		cfg.Moderation.AutoMod.SpamLimit = *auto.SpamLimit
	}
	if auto.CapsLimit != nil {
		if *auto.CapsLimit < 0 || *auto.CapsLimit > 100 {
			return "capsLimit must be between 0 and 100"
		}
		cfg.Moderation.AutoMod.CapsLimit = *auto.CapsLimit
	}
	if auto.Punishment != nil {
		value := strings.ToLower(strings.TrimSpace(*auto.Punishment))
		switch storage.Punishment(value) {
		case storage.PunishWarn, storage.PunishMute, storage.PunishKick, storage.PunishBan:
			cfg.Moderation.AutoMod.Punishment = storage.Punishment(value)
		default:
			return "punishment must be one of warn, mute, kick, ban"
		}
	}
	return ""
}

func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildId"]
	if err := s.store.DeleteGuildConfig(r.Context(), guildID); err != nil {
		s.logger.Error("reset config delete failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reset configuration")
		return
	}
	cfg := storage.DefaultGuildConfig(guildID, s.guildName(guildID))
	if err := s.store.UpsertGuildConfig(r.Context(), cfg); err != nil {
		s.logger.Error("reset config create failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reset configuration")
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Message: "Configuration reset successfully", Config: cfg})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	profile, err := s.store.FindUserProfile(r.Context(), vars["guildId"], vars["userId"])
	if err != nil {
		s.logger.Error("get user failed", zap.String("guild_id", vars["guildId"]), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch user info")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	guildID := mux.Vars(r)["guildId"]
	days := defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = parsed
	}

	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	report, err := s.analytics.Report(r.Context(), guildID, since)
	if err != nil {
		s.logger.Error("stats failed", zap.String("guild_id", guildID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
