package api

type checkRequest struct {
	Password string `json:"password" binding:"required"`
}

type hashRequest struct {
	Hash string `json:"hash" binding:"required"`
}

type crackTimeEntry struct {
	Rate  string `json:"rate"`
	Label string `json:"label"`
}

type strengthReport struct {
	EntropyBits  float64          `json:"entropyBits"`
	PoolSize     int              `json:"poolSize"`
	Length       int              `json:"length"`
	Strength     string           `json:"strength"`
	Score        int              `json:"score"`
	CrackTimes   []crackTimeEntry `json:"crackTimes"`
	MooreHorizon string           `json:"mooreHorizon"`
}

type breachReport struct {
	Pwned bool  `json:"pwned"`
	Count int64 `json:"count"`
}

type checkResponse struct {
	Breach   *breachReport   `json:"breach,omitempty"`
	Strength *strengthReport `json:"strength,omitempty"`
}
