package cache

import (
	"net"
	"strconv"

	redisstorage "github.com/gofiber/storage/redis"
)

// Redis logical databases. The cache client uses DB 0.
const (
	SessionDB = 1
	OAuthDB   = 2
)

// NewStorage creates fiber storage on the cache server using a separate logical database.
func NewStorage(db int) *redisstorage.Storage {
	host, port := "127.0.0.1", 6379
	var username, password string
	if opts := GetClient().Options(); opts != nil {
		username, password = opts.Username, opts.Password
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else if opts.Addr != "" {
			host = opts.Addr
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Database: db,
		Reset:    false,
	})
}
