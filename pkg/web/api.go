package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

// maxImageBody bounds request bodies carrying an image or its JSON form.
const maxImageBody = 8 << 20

// RadioOpener opens a programming session. The caller closes the radio.
type RadioOpener func() (*uart.Radio, error)

// Deps are the stores and services the API reads from. Nil members
// disable the endpoints that need them.
type Deps struct {
	Contacts  *database.ContactRepository
	Snapshots *database.SnapshotRepository
	Metrics   *metrics.Collector
	OpenRadio RadioOpener
}

// API handles REST API endpoints
type API struct {
	deps   Deps
	hub    *WebSocketHub
	logger *logger.Logger

	// radioMu serialises radio sessions; there is one cable.
	radioMu sync.Mutex
}

// NewAPI creates a new API instance
func NewAPI(deps Deps, hub *WebSocketHub, log *logger.Logger) *API {
	if log == nil {
		log = logger.Nop()
	}
	return &API{
		deps:   deps,
		hub:    hub,
		logger: log,
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	version, commit, built := GetVersionInfo()
	response := map[string]interface{}{
		"status":     "running",
		"service":    "rt4d-cps",
		"version":    version,
		"commit":     commit,
		"build_time": built,
		"metrics":    a.deps.Metrics.Snapshot(),
		"radio":      a.deps.OpenRadio != nil,
	}
	if a.deps.Contacts != nil {
		if n, err := a.deps.Contacts.Count(); err == nil {
			response["contacts"] = n
		}
	}
	a.writeJSON(w, http.StatusOK, response)
}

// decodeResponse is the JSON form of a decoded image.
type decodeResponse struct {
	Summary  codeplug.Summary   `json:"summary"`
	Codeplug *codeplug.Codeplug `json:"codeplug"`
}

// HandleDecode handles POST /api/codeplug/decode: raw image in, JSON out
func (a *API) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageBody))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	cp, err := codeplug.NewParser(a.logger).Parse(data)
	if err != nil {
		a.deps.Metrics.CodecError()
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.deps.Metrics.ImageParsed()
	a.writeJSON(w, http.StatusOK, decodeResponse{Summary: cp.Summary(), Codeplug: cp})
}

// HandleEncode handles POST /api/codeplug/encode: JSON in, raw image out
func (a *API) HandleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cp := codeplug.New()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImageBody)).Decode(cp); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid codeplug JSON: %w", err))
		return
	}
	img, err := codeplug.Serialize(cp)
	if err != nil {
		a.deps.Metrics.CodecError()
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.deps.Metrics.ImageSerialized()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="codeplug.4rdmf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// HandleContact handles GET /api/addressbook/{id}
func (a *API) HandleContact(w http.ResponseWriter, r *http.Request) {
	if a.deps.Contacts == nil {
		http.Error(w, "address book not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid DMR ID %q", r.PathValue("id")))
		return
	}
	c, err := a.deps.Contacts.GetByDMRID(uint32(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("DMR ID %d not found", id))
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, c)
}

// HandleSearch handles GET /api/addressbook?q=term&limit=n
func (a *API) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if a.deps.Contacts == nil {
		http.Error(w, "address book not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	contacts, err := a.deps.Contacts.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if contacts == nil {
		contacts = []database.Contact{}
	}
	a.writeJSON(w, http.StatusOK, contacts)
}

// HandleSnapshots handles GET /api/snapshots
func (a *API) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	if a.deps.Snapshots == nil {
		http.Error(w, "snapshots not configured", http.StatusServiceUnavailable)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	snapshots, total, err := a.deps.Snapshots.GetRecentPaginated(page, 20)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snapshots == nil {
		snapshots = []database.Snapshot{}
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":     total,
		"page":      page,
		"snapshots": snapshots,
	})
}

// HandleSnapshotImage handles GET /api/snapshots/{id}/image
func (a *API) HandleSnapshotImage(w http.ResponseWriter, r *http.Request) {
	if a.deps.Snapshots == nil {
		http.Error(w, "snapshots not configured", http.StatusServiceUnavailable)
		return
	}
	s, err := a.deps.Snapshots.Get(r.PathValue("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.4rdmf"`, s.ID))
	_, _ = w.Write(s.Image)
}

// HandleRadioRead handles POST /api/radio/read. The image is read over the
// cable with progress broadcast on the WebSocket hub, stored as a
// snapshot, and returned decoded.
func (a *API) HandleRadioRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.deps.OpenRadio == nil {
		http.Error(w, "no serial port configured", http.StatusServiceUnavailable)
		return
	}
	if !a.radioMu.TryLock() {
		a.writeError(w, http.StatusConflict, errors.New("radio busy"))
		return
	}
	defer a.radioMu.Unlock()

	img, err := a.readImage(r.Context())
	if err != nil {
		a.hub.BroadcastTransferFailed("read", err)
		a.writeError(w, http.StatusBadGateway, err)
		return
	}
	cp, err := codeplug.NewParser(a.logger).Parse(img)
	if err != nil {
		a.deps.Metrics.CodecError()
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.deps.Metrics.ImageParsed()
	sum := cp.Summary()

	resp := map[string]interface{}{"summary": sum, "codeplug": cp}
	if a.deps.Snapshots != nil {
		snap := &database.Snapshot{
			Label:    "web read",
			Beta41:   cp.Settings.Beta41,
			Channels: sum.Channels,
			Contacts: sum.Contacts,
			Image:    img,
		}
		if err := a.deps.Snapshots.Create(snap); err != nil {
			a.logger.Warn("Failed to store snapshot", logger.Error(err))
		} else {
			resp["snapshot_id"] = snap.ID
		}
	}
	a.hub.BroadcastTransferDone("read", sum)
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) readImage(ctx context.Context) ([]byte, error) {
	radio, err := a.deps.OpenRadio()
	if err != nil {
		return nil, err
	}
	a.deps.Metrics.SessionStarted()
	defer a.deps.Metrics.SessionEnded()
	defer func() {
		if err := radio.Close(); err != nil {
			a.logger.Warn("Failed to close radio session", logger.Error(err))
		}
	}()

	if err := radio.Notify(); err != nil {
		return nil, err
	}
	return radio.ReadImage(ctx, func(done, total int) {
		a.hub.BroadcastProgress("read", done, total)
	})
}
