package gpu

import "sync"

// DrawCall is one recorded DrawIndexed together with the state bound when it was issued.
type DrawCall struct {
	Pipeline      Pipeline
	VertexBuffer  Buffer
	IndexBuffer   Buffer
	Sets          []DescriptorSet
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// RecordingPass is a RenderPass that records draws instead of executing them.
type RecordingPass struct {
	mu       sync.Mutex
	pipeline Pipeline
	vertex   Buffer
	index    Buffer
	sets     []DescriptorSet
	draws    []DrawCall
	binds    int
}

var _ RenderPass = &RecordingPass{}

// NewRecordingPass creates an empty recording pass.
func NewRecordingPass() *RecordingPass {
	return &RecordingPass{}
}

func (r *RecordingPass) SetPipeline(p Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline = p
	r.binds++
}

func (r *RecordingPass) SetVertexBuffer(slot uint32, buf Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot == 0 {
		r.vertex = buf
	}
	r.binds++
}

func (r *RecordingPass) SetIndexBuffer(buf Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = buf
	r.binds++
}

func (r *RecordingPass) SetDescriptorSets(first uint32, sets ...DescriptorSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	need := int(first) + len(sets)
	if len(r.sets) < need {
		r.sets = append(r.sets, make([]DescriptorSet, need-len(r.sets))...)
	}
	copy(r.sets[first:], sets)
	r.binds++
}

func (r *RecordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, DrawCall{
		Pipeline:      r.pipeline,
		VertexBuffer:  r.vertex,
		IndexBuffer:   r.index,
		Sets:          append([]DescriptorSet(nil), r.sets...),
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

// Draws returns every recorded draw in issue order.
func (r *RecordingPass) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DrawCall(nil), r.draws...)
}

// BindCount returns how many state-binding calls were recorded.
func (r *RecordingPass) BindCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.binds
}

// Reset clears recorded draws and bound state.
func (r *RecordingPass) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline, r.vertex, r.index = nil, nil, nil
	r.sets, r.draws = nil, nil
	r.binds = 0
}
