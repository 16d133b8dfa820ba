package cache

import "encoding/json"

// encodeStoreEvent/decodeStoreEvent serialize StoreEvent for transport over
// the in-process watermill bus. encoding/json is used rather than a
// third-party codec: no protobuf contract exists for this purely-internal
// transport message (see DESIGN.md), and every other serialization point in
// this package (a Cell's CacheIdentity.Serialize/Deserialize) is supplied by
// the caller, not fixed by the cache itself.
func encodeStoreEvent(ev StoreEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeStoreEvent(b []byte) (StoreEvent, error) {
	var ev StoreEvent
	err := json.Unmarshal(b, &ev)
	return ev, err
}
