// Package rollout 按客户端做确定性分桶, 决定其是否命中灰度发布
package rollout

import (
	"hash/fnv"

	"ota-server/pkg/constants"
)

const buckets = 100

// Bucket 返回 clientUniqueID+label 落入的桶 [0,100)
func Bucket(clientUniqueID, label string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientUniqueID))
	_, _ = h.Write([]byte(label))
	return int(h.Sum32() % buckets)
}

// Decide 判断客户端是否命中该发布
// rollout 为 nil 或 >=100 时全量命中, <=0 时全不命中
func Decide(clientUniqueID, label string, rollout *int) bool {
	if rollout == nil || *rollout >= constants.RolloutFull {
		return true
	}
	if *rollout <= 0 {
		return false
	}
	return Bucket(clientUniqueID, label) < *rollout
}
