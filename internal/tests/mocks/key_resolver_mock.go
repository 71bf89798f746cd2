package mocks

type KeyResolverMock struct {
	Keys map[string]string
	Err  error
}

func (m *KeyResolverMock) ResolveApiKey(provider string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Keys[provider], nil
}
