package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

var _ WorkflowDataCollector = new(LogFileDataCollector)

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordActivitySuccess(workflowId string, instanceId string, nodeId string, activityId string, output map[string]any) {
	lc.logger.Info("success", zap.String("workflow", workflowId), zap.String("instance", instanceId), zap.String("node", nodeId), zap.String("activity", activityId), zap.Any("output", output))
}

func (lc *LogFileDataCollector) RecordActivityFailure(workflowId string, instanceId string, nodeId string, activityId string, reason string) {
	lc.logger.Info("failure", zap.String("workflow", workflowId), zap.String("instance", instanceId), zap.String("node", nodeId), zap.String("activity", activityId), zap.String("reason", reason))
}
