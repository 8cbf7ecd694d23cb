// Package script provides per-model scripting hooks that contribute a transform each frame.
package script

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
)

// TransformGlobal is the name of the global table the updater reads the model transform from.
const TransformGlobal = "transform"

// ErrClosed is returned when a closed script is updated.
var ErrClosed = errors.New("script closed")

// Script is a per-instance behaviour hook. The updater calls Update once per frame and then reads the
// transform it exposes.
type Script interface {
	// Update advances the script by delta seconds.
	//
	// Parameters:
	//   - delta: elapsed frame time in seconds
	//
	// Returns:
	//   - error: error if the script fails
	Update(delta float32) error

	// Transform returns the transform the script publishes under name.
	//
	// Parameters:
	//   - name: the published transform name
	//
	// Returns:
	//   - mgl32.Mat4: the transform
	//   - bool: false if the script does not publish name
	Transform(name string) (mgl32.Mat4, bool)

	// Close frees the script's resources.
	Close()
}

// luaScriptImpl runs a Lua chunk. The chunk may define update(dt) and publishes transforms as global tables
// of the form {position={x,y,z}, rotation={x,y,z}, scale={x,y,z}}, with rotation as Euler degrees.
type luaScriptImpl struct {
	mu    sync.Mutex
	state *lua.LState
}

var _ Script = &luaScriptImpl{}

// NewLuaScript compiles and runs source once to define its globals.
//
// Parameters:
//   - source: Lua source code
//
// Returns:
//   - Script: the loaded script
//   - error: error if the chunk fails to compile or run
func NewLuaScript(source string) (Script, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open lua library %s: %w", lib.name, err)
		}
	}

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return &luaScriptImpl{state: L}, nil
}

func (s *luaScriptImpl) Update(delta float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrClosed
	}
	fn := s.state.GetGlobal("update")
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := s.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(delta)); err != nil {
		return fmt.Errorf("script update failed: %w", err)
	}
	return nil
}

func (s *luaScriptImpl) Transform(name string) (mgl32.Mat4, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return mgl32.Ident4(), false
	}
	tbl, ok := s.state.GetGlobal(name).(*lua.LTable)
	if !ok {
		return mgl32.Ident4(), false
	}

	pos := readVec3(tbl.RawGetString("position"), mgl32.Vec3{})
	rot := readVec3(tbl.RawGetString("rotation"), mgl32.Vec3{})
	scale := readVec3(tbl.RawGetString("scale"), mgl32.Vec3{1, 1, 1})
	return common.ComposeTRS(pos, common.EulerToQuat(common.Radians(rot)), scale), true
}

func (s *luaScriptImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}

// readVec3 reads {x=,y=,z=} or {a,b,c} from v, falling back to def per missing component.
func readVec3(v lua.LValue, def mgl32.Vec3) mgl32.Vec3 {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return def
	}
	out := def
	for i, key := range []string{"x", "y", "z"} {
		c := tbl.RawGetString(key)
		if c == lua.LNil {
			c = tbl.RawGetInt(i + 1)
		}
		if n, ok := c.(lua.LNumber); ok {
			out[i] = float32(n)
		}
	}
	return out
}
