// Package logserver serves the stored anomaly log of each channel as plain
// text. Report messages link to it for the details of invalid and single clocks.
package logserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"timetracker/internal/db/models"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// AnomalyStore reads the latest anomaly log of a channel. *db.DB implements it.
type AnomalyStore interface {
	GetLatestAnomalyLog(ctx context.Context, serverID, channelID string) (*models.AnomalyRun, []models.Anomaly, error)
}

type Handler struct {
	store  AnomalyStore
	layout string
	loc    *time.Location
}

func NewHandler(store AnomalyStore, layout string, loc *time.Location) *Handler {
	return &Handler{store: store, layout: layout, loc: loc}
}

// RegisterRoutes registers the log endpoints on r.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/logs/{guildID}/{channelID}", h.GetLog).Methods("GET")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	guildID, channelID := vars["guildID"], vars["channelID"]

	run, anomalies, err := h.store.GetLatestAnomalyLog(r.Context(), guildID, channelID)
	if err != nil {
		log.Errorf("Error loading anomaly log for %s/%s: %v", guildID, channelID, err)
		http.Error(w, "could not load log", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "no log for this channel", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, Render(run, anomalies, h.layout, h.loc))
}

// Render formats a stored run grouped by member, invalid clocks first.
func Render(run *models.AnomalyRun, anomalies []models.Anomaly, layout string, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clock errors in #%s for the pay period starting %s\n",
		run.ChannelName, run.PeriodStart.Format("01/02/06"))
	fmt.Fprintf(&b, "Requested by %s at %s\n\n", run.RequestedBy, run.CreatedAt.In(loc).Format(layout))

	if len(anomalies) == 0 {
		b.WriteString("No clock errors.\n")
		return b.String()
	}

	var (
		order    []string
		byMember = make(map[string][]models.Anomaly)
	)
	for _, a := range anomalies {
		if _, seen := byMember[a.MemberID]; !seen {
			order = append(order, a.MemberID)
		}
		byMember[a.MemberID] = append(byMember[a.MemberID], a)
	}

	for _, memberID := range order {
		rows := byMember[memberID]
		fmt.Fprintf(&b, "%s's clock errors:\n\n", rows[0].MemberName)
		writeKind(&b, "Invalid Clocks:", models.AnomalyInvalid, rows, layout, loc)
		writeKind(&b, "Single Clocks:", models.AnomalySingle, rows, layout, loc)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeKind(b *strings.Builder, title string, kind models.AnomalyKind, rows []models.Anomaly, layout string, loc *time.Location) {
	wrote := false
	for _, a := range rows {
		if a.Kind != kind {
			continue
		}
		if !wrote {
			b.WriteString(title + "\n")
			wrote = true
		}
		fmt.Fprintf(b, "%s%s: %s (%s)\n", a.PostedAt.In(loc).Format(layout), a.Author, a.Content, a.Reason)
	}
	if wrote {
		b.WriteByte('\n')
	}
}

// NewServer builds the HTTP server for the log pages.
func NewServer(addr string, h *Handler) *http.Server {
	r := mux.NewRouter()
	RegisterRoutes(r, h)
	return &http.Server{
		Handler:      r,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
