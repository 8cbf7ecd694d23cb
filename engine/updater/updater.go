// Package updater advances models by one frame: it writes the model uniform, plays the active animation,
// writes each mesh node's pose uniform and culls every primitive against the camera frustum.
package updater

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/animator"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/Carmen-Shannon/oxy-scene/engine/parallel"
	"github.com/Carmen-Shannon/oxy-scene/engine/script"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Updater performs the per-frame update of models.
type Updater interface {
	// Update advances m by delta seconds. Hidden models are skipped. Node traversal and primitive culling
	// fan out over the pool when there are more items than its threshold, and every write has completed
	// when Update returns.
	//
	// Parameters:
	//   - m: the model to update
	//   - cam: the camera supplying view, projection and the culling frustum
	//   - delta: the elapsed frame time in seconds
	//
	// Returns:
	//   - error: the joined device write errors, nil when every write succeeded
	Update(m model.Model, cam camera.Camera, delta float32) error

	// UpdateAll updates several models, fanning out over the pool.
	//
	// Parameters:
	//   - models: the models to update
	//   - cam: the camera
	//   - delta: the elapsed frame time in seconds
	//
	// Returns:
	//   - error: the joined errors of every model
	UpdateAll(models []model.Model, cam camera.Camera, delta float32) error

	// Pool returns the fork-join pool used for traversal.
	Pool() parallel.Pool

	// Close stops the pool if the updater created it.
	Close()
}

type updaterImpl struct {
	pool    parallel.Pool
	ownPool bool
	cfg     config.UpdaterConfig
	logger  *zap.Logger
}

var _ Updater = &updaterImpl{}

// NewUpdater creates an Updater. A pool sized from the updater config is created when none is supplied.
//
// Parameters:
//   - options: functional options for configuring the updater
//
// Returns:
//   - Updater: the new updater
func NewUpdater(options ...UpdaterBuilderOption) Updater {
	u := &updaterImpl{cfg: config.Default().Updater}
	for _, opt := range options {
		opt(u)
	}
	if u.logger == nil {
		u.logger = logger.Named("updater")
	}
	if u.pool == nil {
		u.pool = parallel.NewPool(parallel.WithConfig(u.cfg))
		u.ownPool = true
	}
	return u
}

func (u *updaterImpl) Pool() parallel.Pool {
	return u.pool
}

func (u *updaterImpl) Close() {
	if u.ownPool {
		u.pool.Stop()
	}
}

func (u *updaterImpl) UpdateAll(models []model.Model, cam camera.Camera, delta float32) error {
	errs := make([]error, len(models))
	u.pool.ForEach(len(models), func(i int) {
		errs[i] = u.Update(models[i], cam, delta)
	})
	return errors.Join(errs...)
}

func (u *updaterImpl) Update(m model.Model, cam camera.Camera, delta float32) error {
	if !m.Render() {
		return nil
	}

	device := m.Device()
	asset := m.Asset()
	var errs writeErrors

	uniform := m.Uniform()
	uniform.PreviousMatrix = uniform.Matrix
	uniform.View = cam.ViewMatrix()
	uniform.Projection = cam.ProjectionMatrix()
	uniform.Matrix = u.modelMatrix(m, delta)
	m.SetUniform(uniform)
	errs.add(device.WriteBuffer(m.UniformBuffer(), 0, uniform.Marshal()), "model uniform")

	u.animate(m, asset, delta)

	pose := m.Nodes()
	linear := m.LinearNodes()
	u.pool.ForEach(len(linear), func(i int) {
		h := linear[i]
		state := m.MeshState(h)
		if state == nil {
			return
		}
		world := pose.WorldMatrix(h)

		meshUniform := model.GPUMeshUniform{Matrix: world}
		if n := pose.Node(h); n.Skin >= 0 && n.Skin < len(asset.Skins) {
			meshUniform.JointCount = float32(jointMatrices(pose, asset.Skins[n.Skin], world, &meshUniform.Joints))
		}
		errs.add(device.WriteBuffer(state.UniformBuffer, 0, meshUniform.Marshal()), "mesh uniform")

		u.cull(asset.Meshes[state.Mesh], state, uniform.Matrix.Mul4(world), cam)
	})
	return errs.join()
}

// modelMatrix composes TRS(position, rotation, scale) with the script transform and the base transform.
// A failing script is logged and the base transform is used alone.
func (u *updaterImpl) modelMatrix(m model.Model, delta float32) mgl32.Mat4 {
	base := m.Transform()
	if s := m.Script(); s != nil {
		if err := s.Update(delta); err != nil {
			u.logger.Warn("script update failed", zap.String("model", m.Name()), zap.Error(err))
		} else if t, ok := s.Transform(script.TransformGlobal); ok {
			base = t.Mul4(base)
		}
	}
	rotation := common.EulerToQuat(common.Radians(m.Rotation()))
	return common.ComposeTRS(m.Position(), rotation, m.Scale()).Mul4(base)
}

// animate advances the model's timer and applies its active animation to the pose.
func (u *updaterImpl) animate(m model.Model, asset *model.Asset, delta float32) {
	if len(asset.Animations) == 0 {
		return
	}
	idx := m.AnimationIndex()
	if idx < 0 || idx >= len(asset.Animations) {
		u.logger.Debug("animation index out of range",
			zap.String("model", m.Name()), zap.Int("index", idx), zap.Int("animations", len(asset.Animations)))
		return
	}
	anim := asset.Animations[idx]
	t := animator.Advance(m.AnimationTimer(), delta, anim.End)
	m.SetAnimationTimer(t)
	animator.Apply(m.Nodes(), anim, t)
}

// cull stores each primitive's world-space bounding sphere and whether it lies outside the frustum.
func (u *updaterImpl) cull(mesh *model.Mesh, state *model.MeshState, trans mgl32.Mat4, cam camera.Camera) {
	scale := common.ScaleX(trans)
	u.pool.ForEach(len(mesh.Primitives), func(j int) {
		sphere := mesh.Primitives[j].BoundingSphere
		center := common.TransformPoint(trans, sphere.Vec3())
		radius := sphere.W() * scale
		state.Primitives[j] = model.PrimitiveState{
			WorldSphere: center.Vec4(radius),
			Cull:        !cam.SphereInFrustum(center, radius),
		}
	})
}

// jointMatrices writes inverse(world) * jointWorld * inverseBind for each joint of skin and returns the
// number written, capped at model.MaxJoints.
func jointMatrices(pose *node.Arena, skin *model.Skin, world mgl32.Mat4, out *[model.MaxJoints]mgl32.Mat4) int {
	inv := world.Inv()
	count := min(len(skin.Joints), model.MaxJoints)
	for j := 0; j < count; j++ {
		ibm := mgl32.Ident4()
		if j < len(skin.InverseBindMatrices) {
			ibm = skin.InverseBindMatrices[j]
		}
		out[j] = inv.Mul4(pose.WorldMatrix(skin.Joints[j])).Mul4(ibm)
	}
	return count
}

// writeErrors collects device write failures from concurrent traversal.
type writeErrors struct {
	mu   sync.Mutex
	errs []error
}

func (w *writeErrors) add(err error, what string) {
	if err == nil {
		return
	}
	w.mu.Lock()
	w.errs = append(w.errs, fmt.Errorf("failed to write %s: %w", what, err))
	w.mu.Unlock()
}

func (w *writeErrors) join() error {
	return errors.Join(w.errs...)
}
