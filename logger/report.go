package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	ordersSubmitted int64
	riskRejections  int64
	streamFallbacks int64
	venueErrors     int64
	components      sync.Map // map[string]*componentStat
)

func componentCounter(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&componentCounter(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&componentCounter(component).errors, 1)
}

// IncrementOrdersSubmitted counts one order handed to a venue.
func IncrementOrdersSubmitted() { atomic.AddInt64(&ordersSubmitted, 1) }

// IncrementRiskRejections counts one order refused before submission.
func IncrementRiskRejections() { atomic.AddInt64(&riskRejections, 1) }

// IncrementStreamFallbacks counts one streaming probe that fell back to polling.
func IncrementStreamFallbacks() { atomic.AddInt64(&streamFallbacks, 1) }

// IncrementVenueErrors counts one failed venue call.
func IncrementVenueErrors() { atomic.AddInt64(&venueErrors, 1) }

// Counters is a point-in-time copy of the gateway counters.
type Counters struct {
	OrdersSubmitted int64
	RiskRejections  int64
	StreamFallbacks int64
	VenueErrors     int64
}

// Snapshot returns the current counter values.
func Snapshot() Counters {
	return Counters{
		OrdersSubmitted: atomic.LoadInt64(&ordersSubmitted),
		RiskRejections:  atomic.LoadInt64(&riskRejections),
		StreamFallbacks: atomic.LoadInt64(&streamFallbacks),
		VenueErrors:     atomic.LoadInt64(&venueErrors),
	}
}

// StartReport begins periodic logging of host statistics and gateway counters.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	netStats, _ := gnet.IOCounters(false)

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := 0.0
	if memStats, err := mem.VirtualMemory(); err == nil {
		memMB = float64(memStats.Used) / 1024 / 1024
	}
	var bytesSent, bytesRecv uint64
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	componentData := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		componentData[k.(string)] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	c := Snapshot()
	log.WithComponent("report").WithFields(Fields{
		"orders_submitted": c.OrdersSubmitted,
		"risk_rejections":  c.RiskRejections,
		"stream_fallbacks": c.StreamFallbacks,
		"venue_errors":     c.VenueErrors,
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memMB),
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
		"components":       componentData,
	}).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memMB)},
		{MetricName: aws.String("OrdersSubmitted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.OrdersSubmitted))},
		{MetricName: aws.String("RiskRejections"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.RiskRejections))},
		{MetricName: aws.String("StreamFallbacks"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.StreamFallbacks))},
		{MetricName: aws.String("VenueErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.VenueErrors))},
		{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	}
	for name, stats := range componentData {
		dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{MetricName: aws.String("ComponentWarns"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(stats["warns"]))},
			cwtypes.MetricDatum{MetricName: aws.String("ComponentErrors"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(stats["errors"]))},
		)
	}

	publishMetrics(ctx, data)
}
