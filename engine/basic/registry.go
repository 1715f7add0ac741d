package basic

import (
	"reflect"
	"slices"

	"github.com/mysticpants/at"
)

// registration is one persistent (spec, handler) pair for unsolicited
// input. The list is scanned newest first, so later registrations override
// earlier ones until they decline a token.
type registration struct {
	spec    any
	handler at.UnsolicitedHandler
}

func (c *Conversation) Register(spec any, dedupe bool, handler at.UnsolicitedHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if dedupe {
		c.regs = slices.DeleteFunc(c.regs, func(r registration) bool {
			return specEqual(r.spec, spec)
		})
	}
	c.regs = append(c.regs, registration{spec: spec, handler: handler})
}

func (c *Conversation) Deregister(spec any, all bool) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	removed := false
	for i := len(c.regs) - 1; i >= 0; i-- {
		if !specEqual(c.regs[i].spec, spec) {
			continue
		}
		c.regs = slices.Delete(c.regs, i, i+1)
		removed = true
		if !all {
			break
		}
	}
	return removed
}

func (c *Conversation) DeregisterAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.regs = nil
}

// specEqual is the registry's identity: plain equality where the spec type
// supports it, pointer identity for functions, structural equality for the
// rest. Users deregister with the same key value they registered.
func specEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}
