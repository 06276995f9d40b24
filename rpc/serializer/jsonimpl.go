package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/privlock/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl encodes messages as JSON, message types by name
type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json encode %s message: %w", msg.MsgType, err)
	}
	return data, nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json decode message: %w", err)
	}
	return nil
}
