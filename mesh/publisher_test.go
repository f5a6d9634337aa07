package mesh

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedReport(scanID string) *ScanReport {
	return &ScanReport{
		ScanID:      scanID,
		VertexCount: 100,
		FaceCount:   180,
		FaceReasons: []ReasonCount{
			{Code: ReasonKept, Label: ReasonLabels[ReasonKept], Count: 150},
			{Code: ReasonIsland, Label: ReasonLabels[ReasonIsland], Count: 30},
		},
		AsymmetryIndex: 0.42,
		Timestamp:      1700000000,
	}
}

func TestPublishReport(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	p := NewPublisher(mock)
	p.SetPublishPrefix("clinic")

	require.NoError(t, p.PublishReport(publishedReport("scan-1")))

	msgs := mock.GetPublishedMessages()
	require.Len(t, msgs, 2)

	assert.Equal(t, "clinic/scan-1/report", msgs[0].Topic)
	assert.Equal(t, byte(1), msgs[0].QoS)
	assert.True(t, msgs[0].Retain)

	var decoded ScanReport
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &decoded))
	assert.Equal(t, "scan-1", decoded.ScanID)
	assert.Equal(t, 180, decoded.FaceCount)

	assert.Equal(t, "clinic/reports", msgs[1].Topic)
	var combined struct {
		Scans     []*ScanReport `json:"scans"`
		Timestamp int64         `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &combined))
	require.Len(t, combined.Scans, 1)
	assert.NotZero(t, combined.Timestamp)
}

func TestPublishReportCombinedAccumulates(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	p := NewPublisher(mock)
	require.NoError(t, p.PublishReport(publishedReport("a")))
	require.NoError(t, p.PublishReport(publishedReport("b")))

	msgs := mock.GetPublishedMessages()
	require.Len(t, msgs, 4)

	var combined struct {
		Scans []*ScanReport `json:"scans"`
	}
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &combined))
	assert.Len(t, combined.Scans, 2)
}

func TestPublishReportNotConnected(t *testing.T) {
	mock := NewMockClient()
	p := NewPublisher(mock)

	err := p.PublishReport(publishedReport("scan-1"))
	assert.Error(t, err)
	assert.Empty(t, mock.GetPublishedMessages())
}

func TestPublishReportPublishError(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	mock.SetPublishError(errors.New("broker rejected"))

	p := NewPublisher(mock)
	assert.Error(t, p.PublishReport(publishedReport("scan-1")))
}

func TestPublisherReportStore(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock)

	require.NoError(t, p.PublishReport(publishedReport("a")))

	r, ok := p.GetReport("a")
	require.True(t, ok)
	assert.Equal(t, "a", r.ScanID)

	all := p.GetAllReports()
	assert.Len(t, all, 1)
	// GetAllReports returns copies.
	all["a"].ScanID = "mutated"
	r, _ = p.GetReport("a")
	assert.Equal(t, "a", r.ScanID)

	p.ClearReport("a")
	_, ok = p.GetReport("a")
	assert.False(t, ok)
}

func TestPublisherSettings(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	p := NewPublisher(nil)

	p.SetQoS(2)
	assert.Equal(t, byte(2), p.qos)
	p.SetQoS(7) // invalid, ignored
	assert.Equal(t, byte(2), p.qos)

	p.SetRetain(false)
	assert.False(t, p.retain)

	p.SetPublishPrefix("")
	assert.Equal(t, "backmesh", p.publishPrefix)
	p.SetPublishPrefix("other")
	assert.Equal(t, "other", p.publishPrefix)
}
