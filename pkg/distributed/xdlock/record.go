package xdlock

import (
	"encoding/json"
	"time"
)

// Record 锁键值集合中的一条持有记录。
type Record struct {
	Owner    string `json:"owner"`
	ExpiryMs int64  `json:"expiryMs"`
}

// NewRecord 创建在 now+ttl 过期的记录。
func NewRecord(owner string, now time.Time, ttl time.Duration) Record {
	return Record{Owner: owner, ExpiryMs: now.Add(ttl).UnixMilli()}
}

// Expired 记录在 now 时刻是否已过期。
func (r Record) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiryMs
}

// Encode 编码为复制 Map 中存储的字符串。
func (r Record) Encode() string {
	data, _ := json.Marshal(r) //nolint:errcheck // 字段都是基本类型，不会失败
	return string(data)
}

// DecodeRecord 解析存储的字符串。
func DecodeRecord(s string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// decodeRecords 解析值集合，无法解析的值被忽略。
func decodeRecords(values []string) []Record {
	out := make([]Record, 0, len(values))
	for _, v := range values {
		if r, err := DecodeRecord(v); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// claimable 判断 owner 能否接管值集合：集合为空、集合中含有 owner 的记录或全部记录过期。
// 集合可能同时含多条记录，先找自己的记录，与排列顺序无关。无法解析的值不参与判断。
func claimable(values []string, owner string, now time.Time) bool {
	records := decodeRecords(values)
	for _, r := range records {
		if r.Owner == owner {
			return true
		}
	}
	for _, r := range records {
		if !r.Expired(now) {
			return false
		}
	}
	return true
}
