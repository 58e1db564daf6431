package redis

import (
	"os"
	"testing"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestDao(t *testing.T) *baseDao {
	addr := os.Getenv("LOOM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOOM_TEST_REDIS_ADDR not set")
	}
	client := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: []string{addr},
	})
	t.Cleanup(func() { client.Close() })
	return &baseDao{
		redisClient: client,
		namespace:   "test",
	}
}

func TestDelayQueue(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, queue *redisDelayQueue,
	){
		"test due message pops":      testPopDue,
		"test delayed message waits": testPopDelayed,
	} {
		t.Run(scenario, func(t *testing.T) {
			queue := newRedisDelayQueue(newTestDao(t))
			fn(t, queue)
		})
	}
}

func testPopDue(t *testing.T, queue *redisDelayQueue) {
	err := queue.PushWithDelay("test-delay", 0, []byte("test_msg1"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	res, err := queue.Pop("test-delay")
	require.NoError(t, err)
	require.Equal(t, "test_msg1", res[0])

	res, err = queue.Pop("test-delay")
	require.NoError(t, err)
	require.Empty(t, res)
}

func testPopDelayed(t *testing.T, queue *redisDelayQueue) {
	err := queue.PushWithDelay("test-delay", 2*time.Second, []byte("test_msg2"))
	require.NoError(t, err)

	res, err := queue.Pop("test-delay")
	require.NoError(t, err)
	require.Empty(t, res)

	time.Sleep(3 * time.Second)
	res, err = queue.Pop("test-delay")
	require.NoError(t, err)
	require.Equal(t, "test_msg2", res[0])
}
