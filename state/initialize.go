package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		BrokenImage: []byte(`<svg viewBox="0 0 120 90" xmlns="http://www.w3.org/2000/svg">
  <rect x="2" y="2" width="116" height="86" fill="none" stroke="gray" stroke-width="2"/>
  <path d="M2 70 L40 40 L60 58 L80 30 L118 70" fill="none" stroke="gray" stroke-width="2"/>
  <path d="M20 20 L100 70 M100 20 L20 70" stroke="darkred" stroke-width="3"/>
</svg>`),
	}
}
