package core

// DataType is the closed enumeration of answer shapes the engine federates.
type DataType string

const (
	DataPrice        DataType = "price"
	DataOHLCV        DataType = "ohlcv"
	DataFundamentals DataType = "fundamentals"
	DataTechnical    DataType = "technical"
	DataSentiment    DataType = "sentiment"
	DataNews         DataType = "news"
	DataMacro        DataType = "macro"
	DataCorrelation  DataType = "correlation"
	DataRisk         DataType = "risk"
)

// IsValid reports whether d is one of the closed set of data types.
func (d DataType) IsValid() bool {
	switch d {
	case DataPrice, DataOHLCV, DataFundamentals, DataTechnical, DataSentiment,
		DataNews, DataMacro, DataCorrelation, DataRisk:
		return true
	}
	return false
}
