package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/emitter"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/updater"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scene manages an ordered collection of models viewed through one Camera.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently updated and drawn.
	Active() bool

	// SetActive sets whether this scene is updated and drawn.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Add appends a model to the scene. Adding a model that is already present is an error.
	//
	// Parameters:
	//   - m: the model to add
	//
	// Returns:
	//   - error: error if m is nil, destroyed or already in the scene
	Add(m model.Model) error

	// Get retrieves a model by its instance ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the model's instance ID
	//
	// Returns:
	//   - model.Model: the model or nil
	Get(id uuid.UUID) model.Model

	// Remove removes a model from the scene without destroying it.
	//
	// Parameters:
	//   - id: the model's instance ID
	//
	// Returns:
	//   - model.Model: the removed model, or nil if it was not in the scene
	Remove(id uuid.UUID) model.Model

	// Models returns the scene's models in insertion order.
	Models() []model.Model

	// Count returns the number of models in the scene.
	Count() int

	// Clear removes all models from the scene. Does not destroy them.
	Clear()

	// Update advances every model by delta seconds through u using the scene camera.
	// Destroyed models are dropped from the scene first.
	//
	// Parameters:
	//   - u: the frame updater
	//   - delta: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: the joined update errors
	Update(u updater.Updater, delta float32) error

	// Draw records the draws of every model through em.
	//
	// Parameters:
	//   - em: the draw emitter
	//   - pass: the render pass to record into
	//   - pipeline: the pipeline to bind
	//
	// Returns:
	//   - emitter.PassCounts: the draws recorded per alpha pass
	Draw(em emitter.Emitter, pass gpu.RenderPass, pipeline gpu.Pipeline) emitter.PassCounts

	// Destroy destroys every model in the scene and clears it.
	Destroy()
}

type scene struct {
	mu     sync.RWMutex
	name   string
	active bool
	camera camera.Camera
	logger *zap.Logger

	models []model.Model
	index  map[uuid.UUID]int
}

var _ Scene = &scene{}

// NewScene creates a new active Scene. A default camera is created when none is supplied.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		active: true,
		index:  make(map[uuid.UUID]int),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("scene")
	}
	if s.camera == nil {
		s.camera = camera.NewCamera()
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Add(m model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(m)
}

func (s *scene) add(m model.Model) error {
	if m == nil {
		return fmt.Errorf("scene %q: cannot add a nil model", s.name)
	}
	if m.Destroyed() {
		return fmt.Errorf("scene %q: model %q: %w", s.name, m.Name(), model.ErrDestroyed)
	}
	if _, ok := s.index[m.ID()]; ok {
		return fmt.Errorf("scene %q: model %s already added", s.name, m.ID())
	}
	s.index[m.ID()] = len(s.models)
	s.models = append(s.models, m)
	return nil
}

func (s *scene) Get(id uuid.UUID) model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.models[i]
	}
	return nil
}

func (s *scene) Remove(id uuid.UUID) model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	m := s.models[i]
	s.removeAt(i)
	return m
}

// removeAt deletes the model at i, keeping the draw order of the rest.
func (s *scene) removeAt(i int) {
	delete(s.index, s.models[i].ID())
	s.models = append(s.models[:i], s.models[i+1:]...)
	for j := i; j < len(s.models); j++ {
		s.index[s.models[j].ID()] = j
	}
}

func (s *scene) Models() []model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Model(nil), s.models...)
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = nil
	s.index = make(map[uuid.UUID]int)
}

func (s *scene) Update(u updater.Updater, delta float32) error {
	s.mu.Lock()
	for i := len(s.models) - 1; i >= 0; i-- {
		if s.models[i].Destroyed() {
			s.logger.Debug("dropping destroyed model", zap.String("scene", s.name), zap.String("model", s.models[i].Name()))
			s.removeAt(i)
		}
	}
	models := append([]model.Model(nil), s.models...)
	cam := s.camera
	s.mu.Unlock()

	cam.Update()
	if err := u.UpdateAll(models, cam, delta); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) Draw(em emitter.Emitter, pass gpu.RenderPass, pipeline gpu.Pipeline) emitter.PassCounts {
	return em.DrawAll(s.Models(), pass, pipeline)
}

func (s *scene) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.models {
		m.Destroy()
	}
	s.models = nil
	s.index = make(map[uuid.UUID]int)
}
