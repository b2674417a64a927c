package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"rider.badgertransit.org/internal/geo"
	"rider.badgertransit.org/internal/location"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/smartlaunch"
	"rider.badgertransit.org/internal/suggest"
)

// maxSuggestLimit caps the limit query parameter.
const maxSuggestLimit = 20

func newSessionID() string {
	return uuid.NewString()
}

// HealthStatus is the body of /v1/healthcheck. The service is ready once a
// stop catalog is loaded.
type HealthStatus struct {
	Status        string `json:"status"`
	Environment   string `json:"environment"`
	Version       string `json:"version"`
	Stops         int    `json:"stops"`
	CatalogSource string `json:"catalogSource,omitempty"`
	Rules         int    `json:"rules"`
	Sessions      int    `json:"sessions"`
	Ready         bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	info := app.Catalog.Store.Info()
	status := HealthStatus{
		Status:        "available",
		Environment:   app.Config.Env,
		Version:       app.Version,
		Stops:         info.Stops,
		CatalogSource: info.Source,
		Rules:         len(app.Rules.LoadRules()),
		Sessions:      app.Sessions.Count(),
		Ready:         info.Stops > 0,
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	app.writeJSON(w, code, status)
}

// parseCoordinate reads lat and lon from the query. Both absent is not an
// error and yields nil.
func parseCoordinate(r *http.Request) (*geo.Coordinate, error) {
	q := r.URL.Query()
	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}
	if rawLat == "" || rawLon == "" {
		return nil, errors.New("lat and lon must be given together")
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat %q", rawLat)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lon %q", rawLon)
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !geo.IsValidLatLon(c) {
		return nil, fmt.Errorf("coordinate %v,%v is out of range", lat, lon)
	}
	return &c, nil
}

func (app *Application) suggestedStopsHandler(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoordinate(r)
	if err != nil {
		app.badRequest(w, err)
		return
	}

	tun := app.Config.GetTunables()
	limit := tun.Suggest.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSuggestLimit {
			app.badRequest(w, fmt.Errorf("limit must be between 1 and %d", maxSuggestLimit))
			return
		}
		limit = n
	}

	if coord != nil {
		app.Locator.Report(*coord)
	}

	opts := locationOptions(tun.Location)
	stops := app.Suggest.Suggest(r.Context(), suggest.Request{
		Location:        coord,
		LocationOptions: &opts,
		Limit:           limit,
	})
	app.writeJSON(w, http.StatusOK, envelope{"stops": stops})
}

func (app *Application) recentStopsHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, envelope{"stops": app.Recent.List()})
}

func (app *Application) recordVisitHandler(w http.ResponseWriter, r *http.Request) {
	stopID := strings.TrimSpace(readIDParam(r))
	if stopID == "" {
		app.notFound(w)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := app.readJSON(w, r, &input, true); err != nil {
		app.badRequest(w, err)
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		if stop, ok := app.Catalog.Store.Get(stopID); ok {
			name = stop.Name
		}
	}

	record, err := app.Recent.RecordVisit(stopID, name, app.Clock.Now())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, envelope{"visit": record})
}

func (app *Application) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, envelope{"rules": app.Editor.List()})
}

func (app *Application) replaceRulesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Rules []models.GeofenceRule `json:"rules"`
	}
	if err := app.readJSON(w, r, &input, false); err != nil {
		app.badRequest(w, err)
		return
	}
	if input.Rules == nil {
		input.Rules = []models.GeofenceRule{}
	}

	rules, err := app.Editor.ReplaceAll(input.Rules)
	if err != nil {
		app.ruleError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"rules": rules})
}

func (app *Application) createRuleHandler(w http.ResponseWriter, r *http.Request) {
	var draft smartlaunch.Draft
	if err := app.readJSON(w, r, &draft, false); err != nil {
		app.badRequest(w, err)
		return
	}

	rule, err := app.Editor.Create(draft)
	if err != nil {
		app.ruleError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, envelope{"rule": rule})
}

func (app *Application) updateRuleHandler(w http.ResponseWriter, r *http.Request) {
	var draft smartlaunch.Draft
	if err := app.readJSON(w, r, &draft, false); err != nil {
		app.badRequest(w, err)
		return
	}

	rule, err := app.Editor.Update(readIDParam(r), draft)
	if err != nil {
		app.ruleError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"rule": rule})
}

func (app *Application) toggleRuleHandler(w http.ResponseWriter, r *http.Request) {
	rule, err := app.Editor.Toggle(readIDParam(r))
	if err != nil {
		app.ruleError(w, r, err)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"rule": rule})
}

func (app *Application) deleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Editor.Delete(readIDParam(r)); err != nil {
		app.ruleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ruleError maps editor errors to responses: unknown ids are 404 and
// validation failures 422.
func (app *Application) ruleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, smartlaunch.ErrRuleNotFound):
		app.notFound(w)
	case errors.Is(err, smartlaunch.ErrMissingStopID),
		errors.Is(err, smartlaunch.ErrPartialWindow),
		errors.Is(err, smartlaunch.ErrInvalidTime),
		errors.Is(err, smartlaunch.ErrInvalidRadius),
		errors.Is(err, smartlaunch.ErrInvalidCenter):
		app.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		app.serverError(w, r, err)
	}
}

func (app *Application) startLaunchHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := app.readJSON(w, r, &input, false); err != nil {
		app.badRequest(w, err)
		return
	}
	if input.Lat == nil || input.Lon == nil {
		app.badRequest(w, errors.New("lat and lon are required"))
		return
	}
	coord := geo.Coordinate{Lat: *input.Lat, Lon: *input.Lon}
	if !geo.IsValidLatLon(coord) {
		app.badRequest(w, fmt.Errorf("coordinate %v,%v is out of range", coord.Lat, coord.Lon))
		return
	}
	app.Locator.Report(coord)

	session := app.newLaunchSession(coord)
	// The cycle outlives this request; Teardown cancels it. Started is
	// final before the session is published.
	session.Started = session.ctrl.Start(context.WithoutCancel(r.Context()))
	app.Sessions.Add(session)

	app.Logger.Info("SmartLaunch session started", "session_id", session.ID, "started", session.Started)
	app.writeJSON(w, http.StatusCreated, envelope{"launch": session.View()})
}

func (app *Application) newLaunchSession(coord geo.Coordinate) *LaunchSession {
	tun := app.Config.GetTunables()
	nav := &navigationSink{clock: app.Clock}
	notice := &noticeSink{}
	id := app.newID()

	ctrl := smartlaunch.NewController(smartlaunch.ControllerOptions{
		Rules:           app.Rules,
		Location:        location.StaticProvider{Coord: coord},
		LocationOptions: locationOptions(tun.Location),
		Navigator:       nav,
		Notifier:        notice,
		Clock:           app.Clock,
		Delay:           tun.SmartLaunch.LaunchDelay,
		TimeZone:        app.Config.TimeLocation(),
		Logger:          app.Logger.With("component", "smartlaunch", "session_id", id),
	})

	return &LaunchSession{ID: id, ctrl: ctrl, nav: nav, notice: notice}
}

func (app *Application) launchStatusHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := app.Sessions.Get(readIDParam(r))
	if !ok {
		app.notFound(w)
		return
	}
	app.writeJSON(w, http.StatusOK, envelope{"launch": session.View()})
}

// cancelLaunchHandler aborts a pending launch and ends the session.
func (app *Application) cancelLaunchHandler(w http.ResponseWriter, r *http.Request) {
	id := readIDParam(r)
	session, ok := app.Sessions.Get(id)
	if !ok {
		app.notFound(w)
		return
	}

	session.ctrl.Cancel()
	app.Sessions.Remove(id)
	app.writeJSON(w, http.StatusOK, envelope{"launch": session.View()})
}
