// Package inmemdb keeps every table in memory. It backs the service tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/coffeeduty/core/duty"
	"github.com/trezcool/coffeeduty/core/roster"
)

type DB struct {
	mutex       sync.RWMutex
	people      map[string]*roster.Person
	coffeeTypes map[string]*roster.CoffeeType
	selections  []duty.Selection // insertion order
	settings    map[string]string
}

func NewDB() *DB {
	return &DB{
		people:      make(map[string]*roster.Person),
		coffeeTypes: make(map[string]*roster.CoffeeType),
		settings:    make(map[string]string),
	}
}
