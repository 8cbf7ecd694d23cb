package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b mgl32.Vec4) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > 1e-4 {
			return false
		}
	}
	return true
}

func TestAdvanceWraps(t *testing.T) {
	tests := []struct {
		timer, delta, end, want float32
	}{
		{0, 0.5, 2, 0.5},
		{1.5, 1, 2, 0.5},
		{0, 4.5, 2, 0.5},
		{1, 1, 2, 2},
		{3, 1, 0, 4},
	}
	for _, tt := range tests {
		if got := Advance(tt.timer, tt.delta, tt.end); math32.Abs(got-tt.want) > 1e-5 {
			t.Errorf("Advance(%v, %v, %v) = %v, want %v", tt.timer, tt.delta, tt.end, got, tt.want)
		}
	}
}

func TestAdvanceLargeAndNonFiniteDeltas(t *testing.T) {
	inf := math32.Inf(1)
	nan := math32.NaN()

	tests := []struct {
		name                    string
		timer, delta, end, want float32
	}{
		{"delta far beyond float spacing", 0, 1e8, 1, 1},
		{"many periods", 0.25, 1000.5, 2, 0.75},
		{"positive infinity", 0.5, inf, 1, 0.5},
		{"negative infinity", 0.5, -inf, 1, 0.5},
		{"NaN delta", 0.5, nan, 1, 0.5},
		{"NaN timer restarts", nan, 0.25, 1, 0.25},
		{"infinite timer restarts", inf, 0.25, 1, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.timer, tt.delta, tt.end)
			if math32.IsNaN(got) || math32.Abs(got-tt.want) > 1e-4 {
				t.Errorf("Advance(%v, %v, %v) = %v, want %v", tt.timer, tt.delta, tt.end, got, tt.want)
			}
		})
	}

	timer := Advance(0, nan, 2)
	timer = Advance(timer, 0.5, 2)
	if timer != 0.5 {
		t.Errorf("timer should keep advancing after a NaN frame, got %v", timer)
	}
}

func TestSampleLinearExactEndpoints(t *testing.T) {
	a := mgl32.Vec4{0.1, -3.3, 17.17, 0.3}
	b := mgl32.Vec4{0.7, 2.9, 123.456, 0}
	s := &model.AnimationSampler{
		Interpolation: model.InterpolationLinear,
		Inputs:        []float32{0.1, 0.7},
		Outputs:       []mgl32.Vec4{a, b},
	}

	if got, ok := Sample(s, model.PathTranslation, 0.1); !ok || got != a {
		t.Errorf("expected exactly %v at the first key, got %v", a, got)
	}
	if got, ok := Sample(s, model.PathTranslation, 0.7); !ok || got != b {
		t.Errorf("expected exactly %v at the last key, got %v", b, got)
	}
}

func TestSampleLinear(t *testing.T) {
	s := &model.AnimationSampler{
		Interpolation: model.InterpolationLinear,
		Inputs:        []float32{0, 1},
		Outputs:       []mgl32.Vec4{{0, 0, 0, 0}, {2, 4, 6, 0}},
	}

	for _, tt := range []struct {
		t    float32
		want mgl32.Vec4
	}{
		{0, mgl32.Vec4{0, 0, 0, 0}},
		{0.5, mgl32.Vec4{1, 2, 3, 0}},
		{1, mgl32.Vec4{2, 4, 6, 0}},
	} {
		got, ok := Sample(s, model.PathTranslation, tt.t)
		if !ok || !near(got, tt.want) {
			t.Errorf("Sample at %v = %v (%v), want %v", tt.t, got, ok, tt.want)
		}
	}

	if _, ok := Sample(s, model.PathTranslation, 1.5); ok {
		t.Error("expected no sample outside the input range")
	}
}

func TestSampleSlerpMidpoint(t *testing.T) {
	q := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})
	s := &model.AnimationSampler{
		Inputs:  []float32{0, 2},
		Outputs: []mgl32.Vec4{{0, 0, 0, 1}, {q.V[0], q.V[1], q.V[2], q.W}},
	}

	got, ok := Sample(s, model.PathRotation, 1)
	if !ok {
		t.Fatal("expected a sample")
	}
	want := mgl32.QuatRotate(math32.Pi/4, mgl32.Vec3{0, 1, 0})
	if !near(got, mgl32.Vec4{want.V[0], want.V[1], want.V[2], want.W}) {
		t.Errorf("expected 45 degree rotation, got %v", got)
	}
	if l := got.Len(); math32.Abs(l-1) > 1e-5 {
		t.Errorf("expected unit quaternion, got length %f", l)
	}

	end, _ := Sample(s, model.PathRotation, 2)
	if !near(end, s.Outputs[1]) {
		t.Errorf("expected end keyframe, got %v", end)
	}
}

func TestSampleStep(t *testing.T) {
	s := &model.AnimationSampler{
		Interpolation: model.InterpolationStep,
		Inputs:        []float32{0, 1, 2},
		Outputs:       []mgl32.Vec4{{1, 0, 0, 0}, {2, 0, 0, 0}, {3, 0, 0, 0}},
	}
	if got, _ := Sample(s, model.PathScale, 0.9); got[0] != 1 {
		t.Errorf("expected first keyframe before the step, got %v", got)
	}
	if got, _ := Sample(s, model.PathScale, 1); got[0] != 2 {
		t.Errorf("expected second keyframe at its time, got %v", got)
	}
}

func TestSampleCubicSpline(t *testing.T) {
	// Zero tangents reduce the spline to smoothstep between the values.
	s := &model.AnimationSampler{
		Interpolation: model.InterpolationCubicSpline,
		Inputs:        []float32{0, 1},
		Outputs: []mgl32.Vec4{
			{}, {0, 0, 0, 0}, {},
			{}, {4, 0, 0, 0}, {},
		},
	}
	for _, tt := range []struct{ t, want float32 }{{0, 0}, {0.5, 2}, {1, 4}, {0.25, 4 * 0.15625}} {
		got, ok := Sample(s, model.PathTranslation, tt.t)
		if !ok || math32.Abs(got[0]-tt.want) > 1e-5 {
			t.Errorf("cubic at %v = %v, want %v", tt.t, got[0], tt.want)
		}
	}

	short := &model.AnimationSampler{Interpolation: model.InterpolationCubicSpline, Inputs: []float32{0, 1}, Outputs: make([]mgl32.Vec4, 4)}
	if _, ok := Sample(short, model.PathTranslation, 0.5); ok {
		t.Error("expected sampler with too few outputs to be skipped")
	}
}

func TestApplyWritesPose(t *testing.T) {
	pose := node.NewArena(2)
	a := pose.Add(node.New("a", 0))
	b := pose.Add(node.New("b", 1))

	anim := &model.Animation{
		Samplers: []model.AnimationSampler{
			{Inputs: []float32{0, 1}, Outputs: []mgl32.Vec4{{0, 0, 0, 0}, {10, 0, 0, 0}}},
			{Inputs: []float32{0, 1, 2}, Outputs: []mgl32.Vec4{{1, 1, 1, 0}}},
		},
		Channels: []model.AnimationChannel{
			{Path: model.PathTranslation, Sampler: 0, Node: a},
			{Path: model.PathScale, Sampler: 1, Node: b},
			{Path: model.PathTranslation, Sampler: 0, Node: node.Handle(9)},
		},
	}

	if n := Apply(pose, anim, 0.5); n != 1 {
		t.Fatalf("expected 1 channel applied, got %d", n)
	}
	if got := pose.Node(a); got.Translation != (mgl32.Vec3{5, 0, 0}) || got.Mode != node.TransformTRS {
		t.Errorf("unexpected node state %+v", got)
	}
	if pose.Node(b).Scale != (mgl32.Vec3{1, 1, 1}) || pose.Node(b).Mode != node.TransformIdentity {
		t.Error("short sampler must not touch its node")
	}
}
