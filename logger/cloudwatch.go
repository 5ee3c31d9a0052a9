package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	cwMu        sync.RWMutex
	cwClient    *cloudwatch.Client
	cwNamespace = "Atlas"
	cwDashboard = "Atlas"
)

// CloudWatchOptions configures metric publishing. Empty AccessKeyID means the
// default AWS credential chain.
type CloudWatchOptions struct {
	Region          string
	Namespace       string
	Dashboard       string
	AccessKeyID     string
	SecretAccessKey string
}

// InitCloudWatch creates the CloudWatch client. If the region is empty it falls
// back to AWS_REGION. When the client cannot be created a warning is logged and
// publishing stays disabled.
func InitCloudWatch(ctx context.Context, opts CloudWatchOptions) {
	log := GetLogger().WithComponent("cloudwatch")

	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	cwMu.Lock()
	cwClient = cloudwatch.NewFromConfig(cfg)
	if opts.Namespace != "" {
		cwNamespace = opts.Namespace
	}
	if opts.Dashboard != "" {
		cwDashboard = opts.Dashboard
	}
	namespace := cwNamespace
	cwMu.Unlock()

	log.WithFields(Fields{"region": region, "namespace": namespace}).Info("initialized CloudWatch client")

	CreateDefaultDashboard(ctx)
}

func cloudWatch() (*cloudwatch.Client, string, string) {
	cwMu.RLock()
	defer cwMu.RUnlock()
	return cwClient, cwNamespace, cwDashboard
}

// publishMetrics sends metric data when the client has been initialised.
func publishMetrics(ctx context.Context, data []cwtypes.MetricDatum) {
	client, namespace, _ := cloudWatch()
	if client == nil || len(data) == 0 {
		return
	}

	log := GetLogger().WithComponent("cloudwatch")
	if _, err := client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: data,
	}); err != nil {
		log.WithError(err).Warn("failed to publish CloudWatch metrics")
		return
	}

	names := make([]string, 0, len(data))
	for _, datum := range data {
		if datum.MetricName != nil {
			names = append(names, *datum.MetricName)
		}
	}

	log.WithField("metrics", strings.Join(names, ",")).Debug("published metrics to CloudWatch")
}

// CreateDefaultDashboard ensures a basic gateway dashboard exists. Failures are
// logged but do not stop execution.
func CreateDefaultDashboard(ctx context.Context) {
	client, namespace, dashboard := cloudWatch()
	if client == nil {
		return
	}

	body := fmt.Sprintf(`{
"widgets": [{
"type": "metric",
"width": 24,
"height": 6,
"properties": {
"metrics": [
    ["%[1]s","OrdersSubmitted"],
    ["%[1]s","RiskRejections"],
    ["%[1]s","StreamFallbacks"],
    ["%[1]s","VenueErrors"]
],
"period": 60,
"stat": "Sum",
"title": "Gateway Activity"
}
}]
}`, namespace)

	if _, err := client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(dashboard),
		DashboardBody: aws.String(body),
	}); err != nil {
		GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}
