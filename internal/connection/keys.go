package connection

import "github.com/bassista/go_connsync/internal/cache"

// ScopeWorkspace prefixes every key whose data belongs to the current workspace.
const ScopeWorkspace = "scope:workspace"

type keys struct{}

// Keys builds the cache keys used by connection queries and mutations.
var Keys keys

func (keys) All() cache.Key {
	return cache.NewKey(ScopeWorkspace, "connections")
}

func (k keys) Lists() cache.Key {
	return k.All().Append("list")
}

func (k keys) List(filters string) cache.Key {
	return k.Lists().Append("filters=" + filters)
}

func (k keys) Detail(connectionID string) cache.Key {
	return k.All().Append("details", connectionID)
}

func (k keys) GetState(connectionID string) cache.Key {
	return k.All().Append("getState", connectionID)
}
