package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPeerRecord_Clone 深拷贝互不影响
func TestPeerRecord_Clone(t *testing.T) {
	r := PeerRecord{
		PublicKey: []byte{1, 2, 3},
		Priority:  PriorityHigh,
		Topics:    [][]byte{{0xaa}, {0xbb}},
	}

	c := r.Clone()
	c.PublicKey[0] = 9
	c.Topics[0][0] = 0xff

	assert.Equal(t, byte(1), r.PublicKey[0])
	assert.Equal(t, byte(0xaa), r.Topics[0][0])
	assert.Equal(t, PriorityHigh, c.Priority)
}

// TestPeerRecord_Topics 主题查询与编码
func TestPeerRecord_Topics(t *testing.T) {
	r := PeerRecord{Topics: [][]byte{{0xab, 0xcd}}}

	assert.True(t, r.HasTopic([]byte{0xab, 0xcd}))
	assert.False(t, r.HasTopic([]byte{0xab}))
	assert.Equal(t, []string{"abcd"}, r.HexTopics())

	// 无主题时编码为空数组而不是 null
	data, err := json.Marshal(PeerInfo{Topics: PeerRecord{}.HexTopics()})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"topics":[]`)
}

// TestPriority_String 优先级名称
func TestPriority_String(t *testing.T) {
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "priority(42)", Priority(42).String())
}

// TestMetricSeriesTable 命名表覆盖快照的每个字段
func TestMetricSeriesTable(t *testing.T) {
	snap := MetricsSnapshot{
		NrSwarmPeers:      1,
		NrSwarmHosts:      2,
		NrDHTPeers:        3,
		NrDHTHosts:        4,
		ConnectionsOpened: 5,
		ConnectionsClosed: 6,
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var raw map[string]float64
	require.NoError(t, json.Unmarshal(data, &raw))

	require.Len(t, MetricSeriesTable, len(raw))
	for _, s := range MetricSeriesTable {
		v, ok := raw[s.Key]
		require.True(t, ok, s.Key)
		assert.Equal(t, v, s.Value(snap), s.Name)
	}

	t.Log("✅ 命名表与 JSON 字段一致")
}
