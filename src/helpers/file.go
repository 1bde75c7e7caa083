package helpers

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if logger != nil {
				logger.Debugf("File does not exist: %s", filename)
			}
			return false
		}
		if logger != nil {
			logger.Infof("Error checking file %s for existence: %s", filename, err)
		}
		return false
	}

	return !info.IsDir()
}

func EncodeBSON(data map[string]interface{}) ([]byte, error) {
	bsonData, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error encoding BSON: %w", err)
	}
	return bsonData, nil
}

func DecodeBSON(bsonData []byte) (map[string]interface{}, error) {
	var decodedData map[string]interface{}
	if err := bson.Unmarshal(bsonData, &decodedData); err != nil {
		return nil, fmt.Errorf("error decoding BSON: %w", err)
	}
	return decodedData, nil
}
