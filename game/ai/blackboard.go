package ai

// Well-known blackboard keys.
const (
	KeyTickID        = "tickID"
	KeyCurrentTarget = "currentTargetUnit" // Unit
	KeySkillTarget   = "skillTarget"       // Unit
	KeySelectedSkill = "selectedSkill"     // *SkillDescriptor
	KeyDestination   = "destination"       // Point
	KeyPath          = "path"              // []Point
	KeyThreat        = "threatUnit"        // Unit
)

// Blackboard is the scratch memory of one tick. It is created empty when the
// tick starts and dropped when it ends; nothing is shared between units or ticks.
type Blackboard struct {
	data map[string]any
}

// NewBlackboard returns an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{data: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (b *Blackboard) Set(key string, value any) {
	b.data[key] = value
}

// Get returns the value under key. A missing key is not an error.
func (b *Blackboard) Get(key string) (any, bool) {
	v, ok := b.data[key]
	return v, ok
}

// Has reports whether key has been written this tick.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.data[key]
	return ok
}

// Delete removes key.
func (b *Blackboard) Delete(key string) {
	delete(b.data, key)
}

// Keys returns all keys written so far, in no particular order.
func (b *Blackboard) Keys() []string {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

// Lookup returns the value under key as a T. Missing keys, nil values and
// values of another type are all reported as a miss.
func Lookup[T any](b *Blackboard, key string) (T, bool) {
	var zero T
	if b == nil {
		return zero, false
	}
	v, ok := b.data[key]
	if !ok || v == nil {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
