package clothing

import (
	"github.com/suderio/scopedsl/internal/world"
)

// Wearable is the validated view of a clothing:wearable component.
type Wearable struct {
	Layer          string
	Slot           string
	CoveredSockets []string
	Tags           []string
	Dirty          bool
	// Rejected lists the kind of every identifier dropped by the whitelist.
	Rejected []DefectKind
}

// DecodeWearable reads wearable component data. Non-whitelisted layers, slots
// and sockets are dropped; tags are free-form strings.
func DecodeWearable(data any, v *Vocabulary) (Wearable, bool) {
	if !world.IsObject(data) {
		return Wearable{}, false
	}
	w := Wearable{
		Layer: world.GetString(data, "layer"),
		Slot:  world.GetString(data, "slot"),
		Tags:  stringList(data, "tags"),
	}
	if w.Layer != "" && !v.IsLayer(w.Layer) {
		w.Layer = ""
		w.Rejected = append(w.Rejected, DefectUnknownLayer)
	}
	if w.Slot != "" && !v.IsSlot(w.Slot) {
		w.Slot = ""
		w.Rejected = append(w.Rejected, DefectUnknownSlot)
	}
	for _, s := range stringList(data, "coveredSockets") {
		if v.IsSocket(s) {
			w.CoveredSockets = append(w.CoveredSockets, s)
		} else {
			w.Rejected = append(w.Rejected, DefectUnknownSocket)
		}
	}
	if cond, ok := world.Get(data, "condition"); ok {
		if dirty, ok := world.Get(cond, "dirty"); ok {
			w.Dirty, _ = dirty.(bool)
		}
	}
	return w, true
}

// HasTag reports whether the wearable carries tag.
func (w Wearable) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Covers reports whether the wearable covers socket.
func (w Wearable) Covers(socket string) bool {
	for _, s := range w.CoveredSockets {
		if s == socket {
			return true
		}
	}
	return false
}

// AnatomySockets reads the socket list of an anatomy:sockets component,
// keeping only whitelisted sockets. The second result counts rejections.
func AnatomySockets(data any, v *Vocabulary) ([]string, int) {
	var out []string
	rejected := 0
	for _, s := range stringList(data, "sockets") {
		if v.IsSocket(s) {
			out = append(out, s)
		} else {
			rejected++
		}
	}
	return out, rejected
}

func stringList(data any, key string) []string {
	raw, ok := world.Get(data, key)
	if !ok {
		return nil
	}
	var out []string
	switch list := raw.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
