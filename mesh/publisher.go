package mesh

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher manages publishing scan analysis reports to MQTT.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	reports       map[string]*ScanReport
	mu            sync.RWMutex
}

// NewPublisher creates a new report publisher.
// If client is nil, publishing is disabled (for testing).
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "backmesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,    // reports matter, at-least-once
		retain:        true, // retain latest report per scan
		reports:       make(map[string]*ScanReport),
	}
}

// SetPublishPrefix overrides the topic prefix (normally from config).
func (p *Publisher) SetPublishPrefix(prefix string) {
	if prefix != "" {
		p.publishPrefix = prefix
	}
}

// PublishReport publishes a scan's analysis report to its individual topic
// and refreshes the combined reports topic.
func (p *Publisher) PublishReport(report *ScanReport) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.reports[report.ScanID] = report
	p.mu.Unlock()

	// Individual topic: backmesh/{scanID}/report
	if err := p.publishIndividual(report); err != nil {
		log.Printf("Error publishing report for %s: %v", report.ScanID, err)
		return err
	}

	// Combined topic: backmesh/reports
	if err := p.publishCombined(); err != nil {
		log.Printf("Error publishing combined reports: %v", err)
		return err
	}

	return nil
}

// publishIndividual publishes one scan's report to its own topic.
func (p *Publisher) publishIndividual(report *ScanReport) error {
	topic := fmt.Sprintf("%s/%s/report", p.publishPrefix, report.ScanID)

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published report for %s: %d/%d faces kept, asymmetry=%.3f",
		report.ScanID, keptFaces(report), report.FaceCount, report.AsymmetryIndex)
	return nil
}

// publishCombined publishes all known reports to the combined topic.
func (p *Publisher) publishCombined() error {
	p.mu.RLock()
	reports := make([]*ScanReport, 0, len(p.reports))
	for _, r := range p.reports {
		reports = append(reports, r)
	}
	p.mu.RUnlock()

	if len(reports) == 0 {
		return nil
	}

	topic := fmt.Sprintf("%s/reports", p.publishPrefix)

	message := map[string]interface{}{
		"scans":     reports,
		"timestamp": time.Now().Unix(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling combined reports: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// GetReport returns the last published report for a scan.
func (p *Publisher) GetReport(scanID string) (*ScanReport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.reports[scanID]
	return r, ok
}

// GetAllReports returns all published reports keyed by scan id.
func (p *Publisher) GetAllReports() map[string]*ScanReport {
	p.mu.RLock()
	defer p.mu.RUnlock()

	reports := make(map[string]*ScanReport, len(p.reports))
	for id, r := range p.reports {
		cp := *r
		reports[id] = &cp
	}
	return reports
}

// ClearReport removes a scan's report (e.g. when its source is retired).
func (p *Publisher) ClearReport(scanID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.reports, scanID)
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker.
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

func keptFaces(report *ScanReport) int {
	for _, rc := range report.FaceReasons {
		if rc.Code == ReasonKept {
			return rc.Count
		}
	}
	return 0
}
