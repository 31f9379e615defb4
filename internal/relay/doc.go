// Package relay fans domain events out to live connections grouped in
// rooms.
//
// Two rooms are used: RoomDefault, which every connection joins on connect,
// and RoomElevated, joined only by connections authenticated as admin.
// REST-originated created/deleted events go to the default room; records
// submitted over a socket are announced with "notify" in the elevated room
// only.
//
// Delivery is best effort to whoever is a member at call time. Optional
// mirrors copy each broadcast to MQTT and InfluxDB off the delivery path.
package relay
