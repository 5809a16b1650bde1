package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 类型定义，用于存储结构化扩展内容
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// StringArray 字符串数组类型，用于存储tags、images等
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Touch 归因链上的一次点击触点
type Touch struct {
	LinkID    uint      `json:"link_id"`   // 推广链接ID
	Timestamp time.Time `json:"timestamp"` // 点击时间
	Weight    float64   `json:"weight"`    // 权重（当前固定 1.0，预留多触点模型）
}

// TouchChain 归因触点链，按点击顺序追加，不去重、不截断
type TouchChain []Touch

// Value 实现 driver.Valuer 接口
func (t TouchChain) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal(TouchChain{})
	}
	return json.Marshal(t)
}

// Scan 实现 sql.Scanner 接口
func (t *TouchChain) Scan(value interface{}) error {
	if value == nil {
		*t = TouchChain{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, t)
}
