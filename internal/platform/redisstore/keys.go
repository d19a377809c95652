package redisstore

import "time"

// Queue key layout. Lists carry job ids; the hash at jobKey(id) is the job
// record itself.
const (
	waitSuffix      = ":wait"
	activeSuffix    = ":active"
	delayedSuffix   = ":delayed"
	completedSuffix = ":completed"
	deadSuffix      = ":dead"

	jobKeyPrefix = "job:"
)

// historyLimit bounds the completed and dead trailing histories per queue;
// older entries are evicted oldest-first.
const historyLimit = 10

// terminalTTL bounds how long a terminal job hash survives for inspection
// after leaving the histories.
const terminalTTL = 72 * time.Hour

func waitKey(queue string) string      { return "queue:" + queue + waitSuffix }
func activeKey(queue string) string    { return "queue:" + queue + activeSuffix }
func delayedKey(queue string) string   { return "queue:" + queue + delayedSuffix }
func completedKey(queue string) string { return "queue:" + queue + completedSuffix }
func deadKey(queue string) string      { return "queue:" + queue + deadSuffix }

func jobKey(id string) string { return jobKeyPrefix + id }
