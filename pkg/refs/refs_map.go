// Copyright 2020 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package refs

import (
	"fmt"
	"runtime/debug"
	"strings"

	"gvisor.dev/intrusive/pkg/log"
	"gvisor.dev/intrusive/pkg/sync"
)

var (
	// liveObjects is a global map of reference-counted objects. Objects are
	// inserted when leak check is enabled, and they are removed when they are
	// destroyed. It is protected by liveObjectsMu.
	liveObjects   = make(map[CheckedObject]struct{})
	liveObjectsMu sync.Mutex
)

// CheckedObject represents a reference-counted object with an informative
// leak detection message.
type CheckedObject interface {
	// RefType is the type of the reference-counted object.
	RefType() string

	// LeakMessage supplies a warning to be printed upon leak detection.
	LeakMessage() string

	// LogRefs indicates whether reference-related events should be logged.
	LogRefs() bool
}

// LeakCheckEnabled returns whether leak checking is enabled. The following
// functions should only be called if it returns true.
func LeakCheckEnabled() bool {
	return GetLeakMode() != NoLeakChecking
}

// Register adds obj to the live object map. It panics if obj is already
// registered.
func Register(obj CheckedObject) {
	if LeakCheckEnabled() {
		track(obj, true)
	}
}

// Unregister removes obj from the live object map. It panics if obj was not
// registered.
func Unregister(obj CheckedObject) {
	if LeakCheckEnabled() {
		track(obj, false)
	}
}

func track(obj CheckedObject, live bool) {
	liveObjectsMu.Lock()
	_, found := liveObjects[obj]
	switch {
	case live && found:
		liveObjectsMu.Unlock()
		panic(fmt.Sprintf("refs: %s %p registered twice", obj.RefType(), obj))
	case !live && !found:
		liveObjectsMu.Unlock()
		panic(fmt.Sprintf("refs: %s %p unregistered but never registered", obj.RefType(), obj))
	case live:
		liveObjects[obj] = struct{}{}
	default:
		delete(liveObjects, obj)
	}
	liveObjectsMu.Unlock()

	if obj.LogRefs() {
		if live {
			logEvent(obj, "registered")
		} else {
			logEvent(obj, "unregistered")
		}
	}
}

// LiveObjects returns the number of registered objects.
func LiveObjects() int {
	liveObjectsMu.Lock()
	defer liveObjectsMu.Unlock()
	return len(liveObjects)
}

// LogIncRef logs a reference increment.
func LogIncRef(obj CheckedObject, refs int64) {
	if LeakCheckEnabled() && obj.LogRefs() {
		logEvent(obj, fmt.Sprintf("IncRef to %d", refs))
	}
}

// LogDecRef logs a reference decrement.
func LogDecRef(obj CheckedObject, refs int64) {
	if LeakCheckEnabled() && obj.LogRefs() {
		logEvent(obj, fmt.Sprintf("DecRef to %d", refs))
	}
}

// logEvent logs a message for the given reference-counted object.
//
// obj.LogRefs() should be checked before calling logEvent, in order to avoid
// calling any text processing needed to evaluate msg.
func logEvent(obj CheckedObject, msg string) {
	log.Infof("[%s %p] %s:\n%s", obj.RefType(), obj, msg, debug.Stack())
}

// checkOnce makes sure that leak checking is only done once.
var checkOnce sync.Once

// DoLeakCheck iterates through the live object map and reports every object
// still in it. It should be called when no reference-counted objects are
// reachable anymore, at which point anything left in the map is considered a
// leak. On multiple calls, only the first call will perform the leak check.
//
// It returns the number of leaked objects found.
func DoLeakCheck() (leaked int) {
	if LeakCheckEnabled() {
		checkOnce.Do(func() { leaked = doLeakCheck() })
	}
	return leaked
}

// DoRepeatedLeakCheck is the same as DoLeakCheck except that it can be called
// multiple times by the caller to incrementally perform leak checking.
func DoRepeatedLeakCheck() int {
	if LeakCheckEnabled() {
		return doLeakCheck()
	}
	return 0
}

func doLeakCheck() int {
	liveObjectsMu.Lock()
	defer liveObjectsMu.Unlock()
	leaked := len(liveObjects)
	if leaked == 0 {
		return 0
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "Leak checking detected %d leaked objects:\n", leaked)
	for obj := range liveObjects {
		msg.WriteString(obj.LeakMessage())
		msg.WriteByte('\n')
	}
	if GetLeakMode() == LeaksPanic {
		panic(msg.String())
	}
	log.Warningf("%s", msg.String())
	return leaked
}
