package compiler

// AgentCount is how many user agents a TCP HTTP mask carries.
const AgentCount = 24

// CamouflageHosts are the Host values a TCP HTTP mask rotates through.
var CamouflageHosts = []string{
	"www.baidu.com", "www.bing.com", "www.163.com",
	"www.netease.com", "www.qq.com", "www.tencent.com",
	"www.taobao.com", "www.tmall.com",
	"www.alibaba-inc.com", "www.aliyun.com",
	"www.sensetime.com", "www.megvii.com",
}

func (c *Compiler) requestMask() *HTTPRequestMask {
	hosts := make([]string, len(CamouflageHosts))
	copy(hosts, CamouflageHosts)

	return &HTTPRequestMask{
		Version: "1.1",
		Method:  "GET",
		Path:    []string{"/"},
		Headers: HTTPRequestHeaders{
			Host:           hosts,
			UserAgent:      c.agents.Generate(AgentCount),
			AcceptEncoding: []string{"gzip, deflate"},
			Connection:     []string{"keep-alive"},
			Pragma:         "no-cache",
		},
	}
}

func responseMask() *HTTPResponseMask {
	return &HTTPResponseMask{
		Version: "1.1",
		Status:  "200",
		Reason:  "OK",
		Headers: HTTPResponseHeaders{
			ContentType:      []string{"text/html;charset=utf-8"},
			TransferEncoding: []string{"chunked"},
			Connection:       []string{"keep-alive"},
			Pragma:           "no-cache",
		},
	}
}
