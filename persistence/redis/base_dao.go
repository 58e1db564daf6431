package redis

import (
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
)

type Config struct {
	Addrs     []string
	Namespace string
	Password  string
}

// baseDao shares the one client owned by Storage; daos never open their
// own connections.
type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}
