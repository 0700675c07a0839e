package common

import (
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeOnce sync.Once
)

// UUIDint64 returns a cluster-unique int64 identifier.
func UUIDint64() int64 {
	snowflakeOnce.Do(func() {
		rand.Seed(time.Now().UnixNano())
		var err error
		snowflakeNode, err = snowflake.NewNode(rand.Int63n(1023))
		if err != nil {
			panic(err)
		}
	})
	return snowflakeNode.Generate().Int64()
}

// UUID returns the base58 string form of UUIDint64.
func UUID() string {
	if snowflakeNode == nil {
		UUIDint64()
	}
	return snowflakeNode.Generate().Base58()
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MakeDir creates dir if it does not exist yet.
func MakeDir(path string) {
	if !FileExists(path) {
		_ = os.MkdirAll(path, 0o755)
	}
}
