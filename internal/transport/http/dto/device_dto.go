package dto

type DeviceRegisterRequest struct {
	Token string `json:"token"`
}

type DeviceRegisterResponse struct {
	OK bool `json:"ok"`
}
