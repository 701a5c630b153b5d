package domain

type BackendPool string

const (
	PoolKubernetes BackendPool = "Kubernetes"
	PoolInfraAPI   BackendPool = "Wind River"
	PoolUndefined  BackendPool = "Undefined"
)

func (p BackendPool) Valid() bool {
	switch p {
	case PoolKubernetes, PoolInfraAPI:
		return true
	default:
		return false
	}
}
