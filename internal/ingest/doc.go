// Package ingest feeds DTU frames into the bridge from MQTT and Kafka.
//
// Every source decodes the JSON frame envelope and hands the frame to a
// Submitter. Sources run concurrently; the bridge queue decides the order in
// which frames are handled. Frames that fail to decode are logged and
// dropped.
//
// The HTTP source lives in the api package (POST /api/v1/frames).
package ingest
