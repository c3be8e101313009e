package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/actions"
	"github.com/durosity/lighttools/internal/config"
	"github.com/durosity/lighttools/internal/db"
	"github.com/durosity/lighttools/internal/device"
	"github.com/durosity/lighttools/internal/dimmer"
	"github.com/durosity/lighttools/internal/eventbus"
	"github.com/durosity/lighttools/internal/flash"
	"github.com/durosity/lighttools/internal/hooks"
	"github.com/durosity/lighttools/internal/kv"
	"github.com/durosity/lighttools/internal/mqtt"
	"github.com/durosity/lighttools/internal/poller"
	"github.com/durosity/lighttools/internal/relaypair"
	"github.com/durosity/lighttools/internal/scene"
)

// SceneSet holds all configured scene controllers.
type SceneSet struct {
	controllers map[string]*scene.Controller
	order       []string
}

// Scene looks up a controller by id. Implements actions.Scenes.
func (s *SceneSet) Scene(id string) (actions.SceneController, bool) {
	ctrl, ok := s.controllers[id]
	if !ok {
		return nil, false
	}
	return ctrl, true
}

// All returns the controllers in configuration order.
func (s *SceneSet) All() []*scene.Controller {
	out := make([]*scene.Controller, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.controllers[id])
	}
	return out
}

// DeviceSet holds the configured dimmer links and relay pairs.
type DeviceSet struct {
	links map[string]*dimmer.Link
	pairs map[string]*relaypair.Pair
}

// Dimmer looks up a dimmer link by id. Implements actions.Devices.
func (d *DeviceSet) Dimmer(id string) (actions.DimmerLink, bool) {
	link, ok := d.links[id]
	if !ok {
		return nil, false
	}
	return link, true
}

// Pair looks up a relay pair by id. Implements actions.Devices.
func (d *DeviceSet) Pair(id string) (actions.RelayPair, bool) {
	pair, ok := d.pairs[id]
	if !ok {
		return nil, false
	}
	return pair, true
}

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB          *db.DB
	Bus         *eventbus.Bus
	SceneBucket kv.Bucket

	// Device access (connected in Start)
	MQTT     *mqtt.Client
	Accessor device.Accessor

	// Behaviors
	Flash   *flash.Manager
	Scenes  *SceneSet
	Devices *DeviceSet
	Links   []*dimmer.Link
	Pairs   []*relaypair.Pair

	// Action system
	Registry *actions.Registry
	Invoker  *actions.Invoker

	// Automation
	Hooks  *hooks.Runtime
	Poller *poller.Poller
}

// NewServices creates all services that don't need the broker connection.
// Device-facing components are wired in Start once MQTT is up.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{
		cfg:    cfg,
		Scenes: &SceneSet{controllers: make(map[string]*scene.Controller)},
		Devices: &DeviceSet{
			links: make(map[string]*dimmer.Link),
			pairs: make(map[string]*relaypair.Pair),
		},
	}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.SceneBucket = kv.NewSQLiteBucket(database.DB, "scenes")

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Initialize poller
	s.Poller = poller.New(cfg.Poller.Interval.Duration())

	// Initialize action registry with built-ins
	s.Registry = actions.NewRegistry()
	if err := actions.RegisterBuiltins(s.Registry); err != nil {
		s.Close()
		return nil, err
	}

	// The context factory closes over s so actions see the components
	// wired during Start.
	ctxFactory := func(ctx context.Context) *actions.Context {
		return actions.NewContext(ctx, s.Scenes, s.Devices, s.Flash, s.Poller, func(name string, args map[string]any) error {
			return s.Invoker.Invoke(ctx, name, args)
		})
	}
	s.Invoker = actions.NewInvoker(s.Registry, ctxFactory)

	return s, nil
}

// Start connects to the broker and wires up all device-facing components.
func (s *Services) Start(ctx context.Context) error {
	client, err := mqtt.Connect(mqtt.Options{
		BrokerURL:      s.cfg.MQTT.Broker,
		ClientID:       s.cfg.MQTT.ClientID,
		Username:       s.cfg.MQTT.Username,
		Password:       s.cfg.MQTT.Password,
		TopicPrefix:    s.cfg.MQTT.TopicPrefix,
		ConnectTimeout: s.cfg.MQTT.ConnectTimeout.Duration(),
		WriteTimeout:   s.cfg.MQTT.WriteTimeout.Duration(),
	}, s.Bus)
	if err != nil {
		return err
	}
	s.MQTT = client
	s.Accessor = device.NewThrottled(client, s.cfg.Poller.RateLimitRPS)

	s.Flash = flash.NewManager(s.Accessor)
	s.Flash.SetNotify(func(seqID, state string, deviceIDs []string) {
		s.Bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeFlash,
			Data: map[string]interface{}{
				"sequence_id": seqID,
				"state":       state,
				"devices":     deviceIDs,
			},
		})
	})
	s.Hooks = hooks.NewRuntime(s.Invoker, s.Accessor)

	s.buildScenes(ctx)
	s.buildDimmers(ctx)
	s.buildPairs(ctx)

	// Route bus events into the Lua hooks
	s.Bus.Subscribe(eventbus.EventTypeValueChanged, func(event eventbus.Event) {
		entityID, _ := event.Data["entity_id"].(string)
		value, ok := event.Data["value"].(device.Value)
		if entityID == "" || !ok {
			return
		}
		s.Hooks.OnValueChanged(ctx, entityID, value)
	})
	s.Bus.Subscribe(eventbus.EventTypeSceneState, func(event eventbus.Event) {
		sceneID, _ := event.Data["scene_id"].(string)
		state, _ := event.Data["state"].(string)
		if sceneID == "" {
			return
		}
		s.Hooks.OnSceneState(ctx, sceneID, state)
	})
	s.Bus.Subscribe(eventbus.EventTypeFlash, func(event eventbus.Event) {
		seqID, _ := event.Data["sequence_id"].(string)
		state, _ := event.Data["state"].(string)
		if seqID == "" {
			return
		}
		s.Hooks.OnFlash(ctx, seqID, state)
	})

	// Load Lua script before starting the worker
	if s.cfg.Script != "" {
		if err := s.Hooks.LoadScript(s.cfg.Script); err != nil {
			return err
		}
	}

	go s.Hooks.Run(ctx)
	go func() {
		if err := s.Poller.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Poller stopped with error")
		}
	}()

	return nil
}

// buildScenes creates the scene controllers and registers them with the
// poller. State changes fan out to the bus and the retained MQTT topic.
func (s *Services) buildScenes(_ context.Context) {
	store := scene.NewStore(s.Accessor, s.SceneBucket)

	onChange := func(sceneID string, state scene.State) {
		s.MQTT.PublishState("scene", sceneID, state.String())
		s.Bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeSceneState,
			Data: map[string]interface{}{
				"scene_id": sceneID,
				"state":    state.String(),
			},
		})
	}

	for _, sceneCfg := range s.cfg.Scenes {
		entities := make([]scene.TrackedEntity, 0, len(sceneCfg.Entities))
		for _, e := range sceneCfg.Entities {
			entities = append(entities, scene.TrackedEntity{ID: e.ID, Kind: device.Kind(e.Kind)})
		}

		ctrl := scene.NewController(scene.Config{
			ID:           sceneCfg.ID,
			Name:         sceneCfg.Name,
			Entities:     entities,
			Tolerance:    sceneCfg.Tolerance,
			RecheckDelay: sceneCfg.RecheckDelay.Duration(),
		}, store, s.Accessor, onChange)

		s.Scenes.controllers[sceneCfg.ID] = ctrl
		s.Scenes.order = append(s.Scenes.order, sceneCfg.ID)
		s.Poller.Register(ctrl)
	}

	log.Info().Int("scenes", len(s.cfg.Scenes)).Msg("Scene controllers ready")
}

// buildDimmers creates the variable-linked dimmers. Devices mid-flash
// are skipped so sequences don't fight the variable sync.
func (s *Services) buildDimmers(ctx context.Context) {
	for _, dimmerCfg := range s.cfg.Dimmers {
		link := dimmer.NewLink(dimmer.LinkConfig{
			DeviceID:   dimmerCfg.Device,
			VariableID: dimmerCfg.Variable,
			Scale:      dimmer.ParseScale(dimmerCfg.Min, dimmerCfg.Max),
		}, s.Accessor, s.Flash.IsFlashing)

		link.Init(ctx)
		s.Links = append(s.Links, link)
		id := dimmerCfg.ID
		if id == "" {
			id = dimmerCfg.Device
		}
		s.Devices.links[id] = link
		s.Poller.Register(poller.SourceFunc(func(ctx context.Context, _ time.Time) {
			link.Poll(ctx)
		}))
	}

	log.Info().Int("dimmers", len(s.cfg.Dimmers)).Msg("Dimmer links ready")
}

// buildPairs creates the two-relay dimmer/fan controllers.
func (s *Services) buildPairs(ctx context.Context) {
	for _, pairCfg := range s.cfg.RelayPairs {
		mode := relaypair.ModeDimmer
		if pairCfg.Mode == "fan" {
			mode = relaypair.ModeFan
		}

		pair := relaypair.New(relaypair.Config{
			ID:          pairCfg.ID,
			Name:        pairCfg.Name,
			Mode:        mode,
			Relay1:      pairCfg.Relay1,
			Relay2:      pairCfg.Relay2,
			SettleDelay: pairCfg.SettleDelay.Duration(),
		}, s.Accessor)

		pair.Init(ctx)
		s.Pairs = append(s.Pairs, pair)
		s.Devices.pairs[pairCfg.ID] = pair
		s.Poller.Register(poller.SourceFunc(func(ctx context.Context, _ time.Time) {
			pair.Poll(ctx)
		}))
	}

	log.Info().Int("pairs", len(s.cfg.RelayPairs)).Msg("Relay pairs ready")
}

// ClearSnapshots drops all persisted scene snapshots.
func (s *Services) ClearSnapshots() error {
	return s.SceneBucket.Clear()
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Flash != nil {
		s.Flash.Stop()
	}
	for _, pair := range s.Pairs {
		pair.Stop()
	}
	if s.Hooks != nil {
		s.Hooks.Close()
	}
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
