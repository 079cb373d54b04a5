package kcheck

//go:generate mockgen -destination=mock_topology_test.go -package=kcheck . Topology
