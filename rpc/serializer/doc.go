// Package serializer converts common.Message values to bytes and back.
//
// Three codecs are available through New:
//
//   - binary: a compact format written for Message. A 16 bit flag field marks
//     which fields are present and carries the booleans, so an owner request is
//     three bytes long. Strings are length prefixed, stats are written in key
//     order so equal messages encode to equal bytes. Recommended default.
//
//   - json: readable on the wire, message types are encoded by name
//     ("acquire", "overlayStatus", ...). Useful with the HTTP transport and curl.
//
//   - gob: kept for completeness, it is the slowest and largest of the three.
//
// All serializers are stateless and safe for concurrent use.
//
//	s, err := serializer.New("binary")
//	data, err := s.Serialize(*common.NewOwnerRequest())
//	var msg common.Message
//	err = s.Deserialize(data, &msg)
package serializer
