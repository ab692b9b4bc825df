package models

type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
