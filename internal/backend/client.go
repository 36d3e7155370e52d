package backend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/identity"
)

// Defaults for the installation record.
const (
	DefaultDeviceName    = "lampnode"
	DefaultDeviceSubtype = "fluffy"
	DefaultModelName     = "fbdr000001c"
)

// Config describes this device to the backend.
type Config struct {
	// InstallationID is the locally known installation identifier used to
	// look up the installation object.
	InstallationID string
	DeviceName     string
	DeviceSubtype  string
	// ModelName is matched against the appName column of the Model class.
	ModelName string
}

// Client resolves identities and shapes backend writes. All methods must be
// called from the goroutine that calls Transport.Dispatch.
type Client struct {
	transport Transport
	cache     *identity.Cache
	cfg       Config
	bus       *events.Bus
	logger    *slog.Logger

	inflight [3]bool

	syncWanted bool
	linking    bool
	synced     bool
}

// NewClient creates a client that fills cache through transport.
func NewClient(transport Transport, cache *identity.Cache, cfg Config, bus *events.Bus, logger *slog.Logger) *Client {
	if cfg.DeviceName == "" {
		cfg.DeviceName = DefaultDeviceName
	}
	if cfg.DeviceSubtype == "" {
		cfg.DeviceSubtype = DefaultDeviceSubtype
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: transport,
		cache:     cache,
		cfg:       cfg,
		bus:       bus,
		logger:    logger,
	}
}

// Cache returns the identity cache the client fills.
func (c *Client) Cache() *identity.Cache {
	return c.cache
}

// ResolveInstallation looks up the installation object id by the local
// installation identifier. Once resolved, or while a lookup is pending, it
// sends nothing and returns the cached id (zero while unresolved).
func (c *Client) ResolveInstallation() identity.ObjectID {
	return c.resolve(identity.Installation, OpResolveInstallation,
		"/1/installations"+whereQuery(map[string]string{"installationId": c.cfg.InstallationID}),
		resultsObjectID)
}

// ResolveUser reads the session's user. Like ResolveInstallation it returns
// the cached id and sends nothing once resolved or while a read is pending.
func (c *Client) ResolveUser() identity.ObjectID {
	return c.resolve(identity.User, OpResolveUser, "/1/users/me", topLevelObjectID)
}

// ResolveModel looks up the Model object by its fixed app name and returns
// the cached id, querying only when neither resolved nor pending.
func (c *Client) ResolveModel() identity.ObjectID {
	return c.resolve(identity.Model, OpResolveModel,
		"/1/classes/Model"+whereQuery(map[string]string{"appName": c.cfg.ModelName}),
		resultsObjectID)
}

// Pending reports whether a resolution request for slot is outstanding.
func (c *Client) Pending(slot identity.Slot) bool {
	return c.inflight[slot]
}

func (c *Client) resolve(slot identity.Slot, op, path string, extract func([]byte) (string, error)) identity.ObjectID {
	if c.cache.Has(slot) || c.inflight[slot] {
		return c.cache.Get(slot)
	}
	c.inflight[slot] = true

	c.logger.Debug("Resolving identity", "slot", slot.String(), "path", path)
	c.transport.Send(Request{Operation: op, Method: http.MethodGet, Path: path}, func(resp Response) {
		c.inflight[slot] = false
		c.onResolved(slot, resp, extract)
		c.maybeUpdateInstallation()
	})
	return identity.ObjectID{}
}

func (c *Client) onResolved(slot identity.Slot, resp Response, extract func([]byte) (string, error)) {
	if !resp.OK() {
		c.logger.Warn("Identity resolution failed", "slot", slot.String(), "status", resp.StatusCode, "error", resp.Err)
		return
	}

	raw, err := extract(resp.Body)
	if err != nil {
		c.logger.Warn("Identity resolution returned no id", "slot", slot.String(), "error", err)
		return
	}

	id := identity.NewObjectID(raw)
	if id.Truncated() {
		c.logger.Warn("Object id truncated", "slot", slot.String(), "raw", raw, "capacity", id.Cap())
	}
	if !c.cache.Store(slot, id) {
		return
	}

	c.logger.Info("Identity resolved", "slot", slot.String(), "object_id", id.String())
	if c.bus != nil {
		c.bus.Publish(events.IdentityResolvedEvent{
			Slot:      slot.String(),
			ObjectID:  id.String(),
			Truncated: id.Truncated(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// SyncInstallationRecord links the installation object to the model and
// owner. Once the installation id is known it looks up the model and user,
// and when neither lookup is pending it issues the update carrying whichever
// of the two ids resolved. It runs at most once per Client.
func (c *Client) SyncInstallationRecord() {
	c.syncWanted = true
	c.ResolveInstallation()
	c.maybeUpdateInstallation()
}

func (c *Client) maybeUpdateInstallation() {
	if !c.syncWanted || c.synced || !c.cache.Has(identity.Installation) {
		return
	}
	if !c.linking {
		c.linking = true
		c.ResolveModel()
		c.ResolveUser()
	}
	if c.inflight[identity.Model] || c.inflight[identity.User] {
		return
	}
	c.synced = true
	c.sendInstallationUpdate()
}

func (c *Client) sendInstallationUpdate() {
	installation := c.cache.Get(identity.Installation).String()
	body, err := json.Marshal(installationUpdate{
		DeviceName:    c.cfg.DeviceName,
		DeviceSubtype: c.cfg.DeviceSubtype,
		Model:         newPointer("Model", c.cache.Get(identity.Model)),
		Owner:         newPointer("_User", c.cache.Get(identity.User)),
	})
	if err != nil {
		c.logger.Error("Failed to encode installation update", "error", err)
		return
	}

	c.logger.Info("Updating installation record", "installation", installation)
	c.transport.Send(Request{
		Operation: OpUpdateInstallation,
		Method:    http.MethodPut,
		Path:      "/1/installations/" + url.PathEscape(installation),
		Body:      body,
	}, c.logResult(OpUpdateInstallation))
}

// PersistState posts state as an Event object. It needs the installation and
// user ids; without them nothing is sent and DeliverySkipped is returned.
// DeliveryEnqueued only means the request was handed to the transport.
func (c *Client) PersistState(state device.State) device.Delivery {
	installation := c.cache.Get(identity.Installation)
	user := c.cache.Get(identity.User)
	if installation.IsZero() || user.IsZero() {
		c.logger.Info("Skipping state save, identity unresolved",
			"state", state.String(),
			"installation", !installation.IsZero(),
			"user", !user.IsZero())
		return device.DeliverySkipped
	}

	body, err := json.Marshal(newStateEvent(installation.String(), user.String(), state))
	if err != nil {
		c.logger.Error("Failed to encode state event", "error", err)
		return device.DeliverySkipped
	}

	c.transport.Send(Request{
		Operation: OpPersistState,
		Method:    http.MethodPost,
		Path:      "/1/classes/Event",
		Body:      body,
	}, c.logResult(OpPersistState))
	return device.DeliveryEnqueued
}

func (c *Client) logResult(op string) Callback {
	return func(resp Response) {
		if !resp.OK() {
			c.logger.Warn("Backend write failed", "operation", op, "status", resp.StatusCode, "error", resp.Err)
			return
		}
		c.logger.Debug("Backend write accepted", "operation", op, "status", resp.StatusCode)
	}
}

func whereQuery(constraints map[string]string) string {
	where, _ := json.Marshal(constraints)
	return "?where=" + url.QueryEscape(string(where))
}
